package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/firepit-chat/firepit/internal/jobs"
)

// DefaultRoleAuditJob scans for servers carrying more than one
// default-on-join role. The invariant is maintained transactionally by the
// roles repository; the audit catches drift introduced by manual data edits.
type DefaultRoleAuditJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDefaultRoleAuditJob wires dependencies for the audit handler.
func NewDefaultRoleAuditJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *DefaultRoleAuditJob {
	return &DefaultRoleAuditJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes default-role audit tasks.
func (j *DefaultRoleAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("default role audit: handler not configured")
	}
	var payload DefaultRoleAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDefaultRoleAudit)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	violations, err := j.findViolations(ctx, payload.ServerID)
	if err != nil {
		resultErr = err
		j.logger().Error("scan default role invariant", slog.Any("error", err))
		return resultErr
	}
	if len(violations) == 0 {
		j.logger().Info("default role invariant holds")
		return nil
	}

	for _, serverID := range violations {
		j.logger().Warn("multiple default roles detected", slog.String("server_id", serverID))
	}
	if !payload.Repair {
		return nil
	}

	repaired := 0
	for _, serverID := range violations {
		if err := j.repair(ctx, serverID); err != nil {
			resultErr = err
			j.logger().Error("repair default roles", slog.String("server_id", serverID), slog.Any("error", err))
			return resultErr
		}
		repaired++
	}
	j.metrics().AddRepairs(TaskDefaultRoleAudit, repaired)
	j.logger().Info("default role invariant repaired", slog.Int("servers", repaired))
	return nil
}

func (j *DefaultRoleAuditJob) findViolations(ctx context.Context, serverID string) ([]string, error) {
	query := `
		SELECT server_id FROM roles
		WHERE default_on_join
		GROUP BY server_id
		HAVING count(*) > 1`
	args := []any{}
	if serverID != "" {
		query = `
		SELECT server_id FROM roles
		WHERE default_on_join AND server_id = $1
		GROUP BY server_id
		HAVING count(*) > 1`
		args = append(args, serverID)
	}
	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// repair keeps the highest-precedence default role (lowest position) and
// demotes the rest.
func (j *DefaultRoleAuditJob) repair(ctx context.Context, serverID string) error {
	_, err := j.Pool.Exec(ctx, `
		UPDATE roles SET default_on_join = false, updated_at = now()
		WHERE server_id = $1 AND default_on_join AND id <> (
			SELECT id FROM roles
			WHERE server_id = $1 AND default_on_join
			ORDER BY position, created_at
			LIMIT 1
		)`, serverID)
	return err
}

func (j *DefaultRoleAuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *DefaultRoleAuditJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
