package report

import (
	"context"
	"time"
)

// Summary is one row of run history.
type Summary struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	CompareMode string    `json:"compare_mode"`
	Score       float64   `json:"score"`
	Failures    int       `json:"failures"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists comparison runs.
type Store interface {
	// Append records a finished comparison.
	Append(ctx context.Context, c *Comparison) error

	// Recent returns up to limit summaries, newest first.
	Recent(ctx context.Context, limit int) ([]Summary, error)

	// Get returns a full stored report by run ID.
	// Returns nil, nil when the run is unknown.
	Get(ctx context.Context, runID string) (*Comparison, error)

	// Close releases store resources.
	Close() error
}

// NullStore discards history. Used when persistence is disabled.
type NullStore struct{}

// NewNullStore creates a no-op store.
func NewNullStore() Store { return &NullStore{} }

// Append does nothing.
func (s *NullStore) Append(ctx context.Context, c *Comparison) error { return nil }

// Recent returns no history.
func (s *NullStore) Recent(ctx context.Context, limit int) ([]Summary, error) { return nil, nil }

// Get returns no report.
func (s *NullStore) Get(ctx context.Context, runID string) (*Comparison, error) { return nil, nil }

// Close does nothing.
func (s *NullStore) Close() error { return nil }

// Ensure NullStore implements Store.
var _ Store = (*NullStore)(nil)
