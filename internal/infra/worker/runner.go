package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/domain/ports/adapter"
	"moderation-service/internal/domain/ports/repository"
	"moderation-service/internal/infra/metrics"
)

const (
	defaultCapabilityTimeout = 30 * time.Second
	defaultCallbackTimeout   = 5 * time.Second
)

// Runner executes one job against the configured capabilities and reports
// the result through the callback. It never returns an error: every failure
// ends up as a FAILED job or a log line.
type Runner struct {
	jobs     repository.JobRepository
	caps     adapter.Capabilities
	fetcher  adapter.MediaFetcher
	callback adapter.VerdictCallback
	log      zerolog.Logger

	capabilityTimeout time.Duration
	callbackTimeout   time.Duration
}

type RunnerOption func(*Runner)

func WithCapabilityTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.capabilityTimeout = d
		}
	}
}

func WithCallbackTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.callbackTimeout = d
		}
	}
}

func NewRunner(
	jobs repository.JobRepository,
	caps adapter.Capabilities,
	fetcher adapter.MediaFetcher,
	callback adapter.VerdictCallback,
	log *zerolog.Logger,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		jobs:              jobs,
		caps:              caps,
		fetcher:           fetcher,
		callback:          callback,
		log:               log.With().Str("component", "job_runner").Logger(),
		capabilityTimeout: defaultCapabilityTimeout,
		callbackTimeout:   defaultCallbackTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Execute runs jobID if it is still PENDING.
func (r *Runner) Execute(ctx context.Context, jobID string) {
	ok, err := r.jobs.MarkProcessing(ctx, jobID)
	if err != nil {
		r.log.Error().Err(err).Str("job_id", jobID).Msg("failed to claim job")
		return
	}
	if !ok {
		r.log.Debug().Str("job_id", jobID).Msg("job no longer pending; skipping")
		return
	}

	job, err := r.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		r.finish(jobID, "unknown", failed(FailureStorage, fmt.Sprintf("load job: %v", err)))
		return
	}

	log := r.log.With().Str("job_id", job.ID).Str("kind", string(job.Kind)).Str("subject_id", job.SubjectID).Logger()
	log.Info().Msg("processing job")
	start := time.Now()

	outcome := r.safeRun(ctx, job)
	latency := time.Since(start)
	metrics.ObserveJobDuration(string(job.Kind), latency.Milliseconds())

	if !r.finish(job.ID, string(job.Kind), outcome) {
		return
	}
	log.Info().Dur("duration_ms", latency).Msg("job completed")
	r.deliver(job, *outcome.Result)
}

// Redeliver repeats the callback of a COMPLETED job.
func (r *Runner) Redeliver(job *model.ModerationJob) error {
	if job.Status != model.JobStatusCompleted || job.Result == nil {
		return fmt.Errorf("%w: job %s has no result to deliver", domain.ErrInvalidArgument, job.ID)
	}
	r.log.Info().Str("job_id", job.ID).Str("subject_id", job.SubjectID).Msg("redelivering callback")
	r.deliver(job, *job.Result)
	return nil
}

// finish persists the terminal state and reports whether a callback is due.
// The store write uses a fresh context so a cancelled pool context cannot
// leave the job in PROCESSING.
func (r *Runner) finish(jobID, kind string, outcome Outcome) bool {
	ctx := context.Background()
	if outcome.Failure != nil {
		metrics.IncJob(kind, "failed")
		r.log.Warn().Str("job_id", jobID).Str("failure", outcome.Failure.String()).Msg("job failed")
		if _, err := r.jobs.Fail(ctx, jobID, outcome.Failure.String()); err != nil {
			r.log.Error().Err(err).Str("job_id", jobID).Msg("failed to persist job failure")
		}
		return false
	}

	ok, err := r.jobs.Complete(ctx, jobID, *outcome.Result)
	if err != nil {
		r.log.Error().Err(err).Str("job_id", jobID).Msg("failed to persist job result")
		return false
	}
	if !ok {
		r.log.Warn().Str("job_id", jobID).Msg("job left PROCESSING before completion; dropping result")
		return false
	}
	metrics.IncJob(kind, "completed")
	return true
}

func (r *Runner) safeRun(ctx context.Context, job *model.ModerationJob) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = failed(FailureCapability, fmt.Sprintf("panic: %v", p))
		}
	}()
	out = r.run(ctx, job)
	if out.Result != nil {
		if err := out.Result.Validate(); err != nil {
			return failed(FailureInvalidResult, err.Error())
		}
	}
	return out
}

func (r *Runner) run(ctx context.Context, job *model.ModerationJob) Outcome {
	ctx, cancel := context.WithTimeout(ctx, r.capabilityTimeout)
	defer cancel()

	switch job.Kind {
	case model.JobKindTextModeration:
		if r.caps.Text == nil {
			return failed(FailureCapability, "no text moderator configured")
		}
		var scores model.TextScores
		err := r.timed("text", "moderate", func() error {
			var err error
			scores, err = r.caps.Text.ModerateText(ctx, job.Input.Text)
			return err
		})
		if err != nil {
			return capabilityFailure(ctx, err)
		}
		return succeeded(model.JobResult{Kind: job.Kind, Text: &scores})

	case model.JobKindMediaModeration:
		if r.caps.Media == nil {
			return failed(FailureCapability, "no media moderator configured")
		}
		return r.withMedia(ctx, job, func(f adapter.MediaFile) (model.JobResult, error) {
			s, err := r.caps.Media.ModerateMedia(ctx, f)
			return model.JobResult{Kind: job.Kind, Media: &s}, err
		})

	case model.JobKindMediaTagging:
		if r.caps.Tagger == nil {
			return failed(FailureCapability, "no media tagger configured")
		}
		return r.withMedia(ctx, job, func(f adapter.MediaFile) (model.JobResult, error) {
			t, err := r.caps.Tagger.TagMedia(ctx, f)
			return model.JobResult{Kind: job.Kind, Tag: &t}, err
		})

	case model.JobKindSummary:
		if r.caps.Summarizer == nil {
			return failed(FailureCapability, "no summarizer configured")
		}
		var res model.SummaryResult
		err := r.timed("summary", "summarize", func() error {
			var err error
			res, err = r.caps.Summarizer.Summarize(ctx, job.Input.Comments)
			return err
		})
		if err != nil {
			return capabilityFailure(ctx, err)
		}
		return succeeded(model.JobResult{Kind: job.Kind, Summary: &res})
	}
	return failed(FailureInvalidResult, fmt.Sprintf("unsupported job kind %q", job.Kind))
}

// withMedia fetches the job's media object, runs fn on the local copy and
// releases the copy on every path.
func (r *Runner) withMedia(ctx context.Context, job *model.ModerationJob, fn func(adapter.MediaFile) (model.JobResult, error)) Outcome {
	if r.fetcher == nil {
		return failed(FailureStorage, "no media fetcher configured")
	}
	if job.Input.ObjectKey == "" {
		return failed(FailureStorage, "job has no object key")
	}
	path, release, err := r.fetcher.Fetch(ctx, job.Input.ObjectKey)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return failed(FailureTimeout, err.Error())
		}
		return failed(FailureStorage, err.Error())
	}
	defer release()

	file := adapter.MediaFile{Path: path, ObjectKey: job.Input.ObjectKey, MimeType: job.Input.MimeType}
	var res model.JobResult
	err = r.timed("media", string(job.Kind), func() error {
		var err error
		res, err = fn(file)
		return err
	})
	if err != nil {
		return capabilityFailure(ctx, err)
	}
	return succeeded(res)
}

func (r *Runner) timed(provider, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveCapabilityCall(provider, op, time.Since(start).Milliseconds(), err == nil)
	return err
}

// deliver sends exactly one callback for a completed job. Failures are
// logged and not retried.
func (r *Runner) deliver(job *model.ModerationJob, res model.JobResult) {
	if r.callback == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.callbackTimeout)
	defer cancel()

	var err error
	switch {
	case res.Tag != nil:
		err = r.callback.DeliverTag(ctx, job.SubjectID, *res.Tag)
	case res.Summary != nil:
		err = r.callback.DeliverSummary(ctx, job.SubjectID, *res.Summary)
	default:
		comp, ok := job.Kind.Component()
		score, hasScore := res.Badness()
		if !ok || !hasScore {
			err = fmt.Errorf("%w: no decision input for %s", domain.ErrInvalidArgument, job.Kind)
			break
		}
		err = r.callback.DeliverVerdict(ctx, job.SubjectID, comp, score)
	}

	if err != nil {
		metrics.IncCallback(string(job.Kind), "failed")
		r.log.Error().Err(err).Str("job_id", job.ID).Str("subject_id", job.SubjectID).Msg("callback delivery failed")
		return
	}
	metrics.IncCallback(string(job.Kind), "delivered")
}
