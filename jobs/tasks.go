package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune deletes expired rows from the sign-in trail.
	TaskAuditPrune = "audit:prune"
)

// NewAuditPruneTask constructs the audit prune task.
func NewAuditPruneTask() *asynq.Task {
	return asynq.NewTask(TaskAuditPrune, nil)
}
