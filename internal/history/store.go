// Package history persists a record of every build for the status API and
// the history command.
package history

import (
	"context"
	"time"
)

// Record is one finished build.
type Record struct {
	ID          string        `json:"id"`
	Trigger     string        `json:"trigger"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Pages       int           `json:"pages"`
	Directories int           `json:"directories"`
	Assets      int           `json:"assets"`
	Revision    string        `json:"revision,omitempty"`
}

// Store records builds and lists the most recent ones, newest first.
type Store interface {
	Record(ctx context.Context, rec Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
