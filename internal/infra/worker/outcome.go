package worker

import (
	"context"
	"errors"
	"fmt"

	"moderation-service/internal/domain/model"
)

// FailureKind classifies why a job did not produce a result.
type FailureKind string

const (
	FailureCapability    FailureKind = "capability"
	FailureStorage       FailureKind = "storage"
	FailureTimeout       FailureKind = "timeout"
	FailureInvalidResult FailureKind = "invalid_result"
)

type Failure struct {
	Kind   FailureKind
	Detail string
}

// String is what gets persisted as the job's error detail.
func (f Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// Outcome is either a validated result or a typed failure, never both.
type Outcome struct {
	Result  *model.JobResult
	Failure *Failure
}

func succeeded(r model.JobResult) Outcome { return Outcome{Result: &r} }

func failed(kind FailureKind, detail string) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Detail: detail}}
}

// capabilityFailure turns a provider error into a failure, detecting timeouts.
func capabilityFailure(ctx context.Context, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failed(FailureTimeout, err.Error())
	}
	return failed(FailureCapability, err.Error())
}
