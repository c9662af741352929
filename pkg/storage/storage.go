package storage

import (
	"context"
	"errors"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

var ErrRunNotFound = errors.New("run not found")

// Database archives fleet runs.
type Database interface {
	// SaveRun stores run under run.ID, replacing any run with the same ID.
	SaveRun(ctx context.Context, run types.FleetRun) error
	// GetRun returns the run with id or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (types.FleetRun, error)
	// ListRuns returns the runs for month, newest first. A zero month lists
	// every run.
	ListRuns(ctx context.Context, month types.Month) ([]types.FleetRun, error)

	// Lifecycle
	Close() error
}
