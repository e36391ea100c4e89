package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/firepit-chat/firepit/internal/apicache"
	"github.com/firepit-chat/firepit/internal/app"
	jobmetrics "github.com/firepit-chat/firepit/internal/jobs"
	"github.com/firepit-chat/firepit/internal/platform/db"
	"github.com/firepit-chat/firepit/internal/upstream"
	"github.com/firepit-chat/firepit/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)
	releases := upstream.NewReleaseClient(nil, cfg.ReleaseFeedURL, apicache.New(), cfg.ReleaseCacheTTL)

	warmupJob := jobs.NewVersionWarmupJob(releases, logger, metrics)
	auditJob := jobs.NewDefaultRoleAuditJob(pool, logger, metrics)

	warmupTask, err := jobs.NewVersionWarmupTask(jobs.VersionWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	auditTask, err := jobs.NewDefaultRoleAuditTask(jobs.DefaultRoleAuditPayload{Repair: true})
	if err != nil {
		logger.Error("build audit task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskVersionWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskDefaultRoleAudit, Handler: auditJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: warmupTask},
			{Spec: "0 3 * * *", Task: auditTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
