// Package store persists resume records so that a run can be continued
// from another process.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VinCheetah/Evolution/evo"
)

// ErrNotFound is returned by LoadRecord for an unknown run id.
var ErrNotFound = errors.New("record not found")

// RunInfo describes the latest record of one run.
type RunInfo struct {
	RunID      string
	Generation int
	SavedAt    time.Time
}

// Store keeps the latest record of each run. It satisfies evo.RecordSink.
type Store interface {
	evo.RecordSink
	Init(ctx context.Context) error
	// ListRuns returns the stored runs ordered by run id.
	ListRuns(ctx context.Context) ([]RunInfo, error)
	Close() error
}

// NewStore returns an uninitialised store of the given backend.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func notFound(runID string) error {
	return fmt.Errorf("run %s: %w", runID, ErrNotFound)
}
