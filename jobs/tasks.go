package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskVersionWarmup pre-populates the upstream release cache.
	TaskVersionWarmup = "upstream:version_warmup"
	// TaskDefaultRoleAudit verifies the one-default-role-per-server invariant.
	TaskDefaultRoleAudit = "roles:default_audit"
)

// VersionWarmupPayload configures one warmup run.
type VersionWarmupPayload struct {
	Force bool `json:"force"`
}

// NewVersionWarmupTask constructs the warmup task.
func NewVersionWarmupTask(payload VersionWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVersionWarmup, data), nil
}

// DefaultRoleAuditPayload configures one audit run. ServerID narrows the
// audit to a single server; empty means all servers.
type DefaultRoleAuditPayload struct {
	ServerID string `json:"server_id,omitempty"`
	Repair   bool   `json:"repair"`
}

// NewDefaultRoleAuditTask constructs the audit task.
func NewDefaultRoleAuditTask(payload DefaultRoleAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDefaultRoleAudit, data), nil
}
