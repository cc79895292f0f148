// Package store persists transformed permit batches so the API server and
// exporters read qualified leads without re-fetching upstream data.
package store

import (
	"context"
	"time"

	"github.com/sells-group/permit-leads/internal/model"
)

// PermitFilter specifies criteria for listing permits from the latest batch.
// Pointer fields distinguish "unset" from zero values.
type PermitFilter struct {
	Priority       model.LeadPriority   `json:"priority,omitempty"`
	ContractorType model.ContractorType `json:"contractor_type,omitempty"`
	Status         string               `json:"status,omitempty"`
	WorkType       string               `json:"work_type,omitempty"`
	MinValue       *float64             `json:"min_value,omitempty"`
	MaxValue       *float64             `json:"max_value,omitempty"`
	From           *time.Time           `json:"from,omitempty"`
	To             *time.Time           `json:"to,omitempty"`
	Limit          int                  `json:"limit,omitempty"`
	Offset         int                  `json:"offset,omitempty"`
}

// Batch is a stored transformation envelope without its permit rows.
type Batch struct {
	ID        string          `json:"id"`
	Status    model.Status    `json:"status"`
	ErrorType model.ErrorType `json:"error_type,omitempty"`
	Message   string          `json:"message,omitempty"`
	Summary   model.Summary   `json:"summary"`
	Metadata  model.Metadata  `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store defines the persistence interface for qualified permit leads.
type Store interface {
	// ReplaceBatch stores a transformation result and its permits as the new
	// current batch, atomically replacing the previous one. Returns the
	// assigned batch id.
	ReplaceBatch(ctx context.Context, result *model.TransformResult) (string, error)

	// LatestBatch returns the most recently stored batch envelope, or nil
	// when nothing has been stored yet.
	LatestBatch(ctx context.Context) (*Batch, error)

	// ListPermits returns permits from the latest batch matching the filter,
	// ordered by application date descending then permit number.
	ListPermits(ctx context.Context, filter PermitFilter) ([]model.Permit, error)

	// CountPermits returns the number of permits in the latest batch matching
	// the filter, ignoring Limit and Offset.
	CountPermits(ctx context.Context, filter PermitFilter) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
