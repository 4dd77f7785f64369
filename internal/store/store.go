// Package store persists delivery history and validation-run audit records.
// The core pipeline consumes only the DeliveryHistory interface; run
// persistence is wired by the CLI and server layers.
package store

import (
	"context"
	"time"

	"github.com/sells-group/verify-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Number string          `json:"number,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// DeliveryHistory is the read/write surface over the delivery log.
type DeliveryHistory interface {
	// QueryHistory aggregates the delivery log for one number. A number
	// with no log rows returns a zero-valued history, not an error.
	QueryHistory(ctx context.Context, number string) (*model.DeliveryHistory, error)
	// RecordDelivery appends one delivery outcome.
	RecordDelivery(ctx context.Context, number string, delivered bool, at time.Time) error
	// PruneHistory deletes log rows older than the cutoff, returning the
	// number removed.
	PruneHistory(ctx context.Context, before time.Time) (int, error)
}

// Store is the full persistence interface.
type Store interface {
	DeliveryHistory

	// Runs
	CreateRun(ctx context.Context, number string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.ValidationResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
