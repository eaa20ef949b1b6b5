package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"moderation-service/internal/config"
	"moderation-service/internal/domain/policy"
	"moderation-service/internal/domain/ports/adapter"
	"moderation-service/internal/domain/ports/repository"
	"moderation-service/internal/infra/adapters/telegram"
	"moderation-service/internal/infra/callback"
	"moderation-service/internal/infra/capability"
	"moderation-service/internal/infra/db/memory"
	pg "moderation-service/internal/infra/db/postgres"
	"moderation-service/internal/infra/logging"
	"moderation-service/internal/infra/metrics"
	red "moderation-service/internal/infra/redis"
	"moderation-service/internal/infra/sched"
	"moderation-service/internal/infra/storage"
	"moderation-service/internal/infra/web"
	"moderation-service/internal/infra/worker"
	"moderation-service/internal/usecase"
)

// set with -ldflags
var (
	version = "dev"
	commit  = "none"
)

type repos struct {
	tm            repository.TransactionManager
	content       repository.ContentRepository
	jobs          repository.JobRepository
	notifications repository.NotificationRepository
	activity      repository.ActivityRepository
	close         func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("moderationd stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("starting moderationd")

	st, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer st.close()

	pol, err := policy.New(cfg.Policy.RejectThreshold, cfg.Policy.ReviewThreshold)
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	caps, err := capability.NewRegistry(ctx, cfg.Capability, logger)
	if err != nil {
		return fmt.Errorf("capabilities: %w", err)
	}
	fetcher, err := openFetcher(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	cb, err := callback.NewClient(cfg.Callback.BaseURL, cfg.Server.InternalAPIKey, cfg.Callback.Timeout, logger)
	if err != nil {
		return fmt.Errorf("callback: %w", err)
	}

	runner := worker.NewRunner(st.jobs, caps, fetcher, cb, logger,
		worker.WithCapabilityTimeout(cfg.Capability.RequestTimeout),
		worker.WithCallbackTimeout(cfg.Callback.Timeout),
	)
	pool := worker.NewPool(cfg.Worker.Workers, cfg.Worker.QueueSize, logger)
	pool.Start(ctx)
	defer pool.Stop()
	dispatcher := worker.NewPoolDispatcher(pool, runner)

	var alerter adapter.ReviewAlerter = adapter.NoopAlerter{}
	if cfg.Telegram.Token != "" {
		a, err := telegram.NewReviewAlerter(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		alerter = a
	}

	reconcileUC := usecase.NewReconcileUseCase(st.tm, st.content, st.notifications, st.activity, alerter, logger)
	verdictUC := usecase.NewVerdictUseCase(pol, st.tm, st.content, st.activity, reconcileUC, logger)
	submissionUC := usecase.NewSubmissionUseCase(st.tm, st.content, st.jobs, st.activity, dispatcher, logger)
	adminUC := usecase.NewAdminUseCase(st.content, st.activity, reconcileUC, logger)
	notificationUC := usecase.NewNotificationUseCase(st.notifications, logger)

	var (
		limiter web.Limiter
		locker  sched.Locker
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		limiter = red.NewRateLimiter(rc)
		locker = red.NewLocker(rc)
	} else {
		logger.Warn().Msg("redis not configured; rate limiting off and the sweep is not coordinated across replicas")
	}

	if cfg.Sweep.Interval > 0 {
		sweeper := sched.NewStaleSweeper(st.jobs, st.content, dispatcher, runner, locker,
			cfg.Sweep.Interval, cfg.Sweep.StaleAfter, cfg.Sweep.BatchSize, logger)
		go sweeper.Run(ctx)
	}

	srv := web.NewServer(web.Deps{
		Submissions:   submissionUC,
		Verdicts:      verdictUC,
		Admin:         adminUC,
		Notifications: notificationUC,
		Auth:          web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL),
		Limiter:       limiter,
	}, web.Options{
		InternalKey:    cfg.Server.InternalAPIKey,
		AdminAPIKey:    cfg.Admin.APIKey,
		RequestTimeout: cfg.Server.RequestTimeout,
		RatePerMinute:  cfg.Server.RatePerMinute,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	// Drain in-flight jobs first: their callbacks may target this server.
	pool.Stop()
	logger.Info().Msg("worker pool drained")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (*repos, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn().Msg("using the in-memory store; state is lost on exit")
		s := memory.NewStore()
		return &repos{
			tm:            memory.NewTxManager(s),
			content:       memory.NewContentRepo(s),
			jobs:          memory.NewJobRepo(s),
			notifications: memory.NewNotificationRepo(s),
			activity:      memory.NewActivityRepo(s),
			close:         func() {},
		}, nil
	case "", "postgres":
		pool, err := pg.Connect(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		go pg.ReportPoolStats(ctx, pool, 15*time.Second)
		return &repos{
			tm:            pg.NewTxManager(pool),
			content:       pg.NewContentRepo(pool),
			jobs:          pg.NewJobRepo(pool),
			notifications: pg.NewNotificationRepo(pool),
			activity:      pg.NewActivityRepo(pool),
			close:         pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func openFetcher(cfg config.StorageConfig, logger *zerolog.Logger) (adapter.MediaFetcher, error) {
	switch cfg.Backend {
	case "s3":
		s3cfg := storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			TempDir:   cfg.TempDir,
		}
		return storage.NewS3Fetcher(storage.Connect(s3cfg), s3cfg, logger)
	case "", "dir":
		return storage.NewDirFetcher(cfg.Dir)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
