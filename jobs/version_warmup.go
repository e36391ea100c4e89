package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/firepit-chat/firepit/internal/jobs"
	"github.com/firepit-chat/firepit/internal/upstream"
)

// VersionWarmupJob keeps the upstream release cache warm so the first client
// version check after a cold start does not pay for the outbound fetch.
type VersionWarmupJob struct {
	Releases *upstream.ReleaseClient
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewVersionWarmupJob wires dependencies for the warmup handler.
func NewVersionWarmupJob(releases *upstream.ReleaseClient, logger *slog.Logger, metrics *jobmetrics.Metrics) *VersionWarmupJob {
	return &VersionWarmupJob{Releases: releases, Logger: logger, Metrics: metrics}
}

// Handle processes version warmup tasks.
func (j *VersionWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Releases == nil {
		return errors.New("version warmup: handler not configured")
	}
	var payload VersionWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskVersionWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if payload.Force {
		j.Releases.Invalidate()
	}
	release, err := j.Releases.Latest(ctx)
	if err != nil {
		resultErr = err
		j.logger().Error("warm release cache", slog.Any("error", err))
		return resultErr
	}
	j.logger().Info("release cache warmed", slog.String("version", release.Version))
	return nil
}

func (j *VersionWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *VersionWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
