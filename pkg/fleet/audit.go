package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/pvmodel"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/storage"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

// ErrNoMonth is returned by Audit when neither the call nor the Auditor
// names a month.
var ErrNoMonth = errors.New("no target month")

// Auditor runs the configured fleet and archives every run.
type Auditor struct {
	runner       *Runner
	db           storage.Database
	plants       []types.PlantConfig
	params       pvmodel.Params
	defaultMonth types.Month

	now func() time.Time
}

// NewAuditor returns an Auditor for plants. defaultMonth is used when Audit
// is called with a zero month.
func NewAuditor(r *Runner, db storage.Database, plants []types.PlantConfig, params pvmodel.Params, defaultMonth types.Month) *Auditor {
	return &Auditor{
		runner:       r,
		db:           db,
		plants:       plants,
		params:       params,
		defaultMonth: defaultMonth,
		now:          time.Now,
	}
}

// DefaultMonth is the month audited when none is requested.
func (a *Auditor) DefaultMonth() types.Month {
	return a.defaultMonth
}

// Audit runs the fleet for month and saves the run. The run is returned even
// when it has no results; it is up to the caller to treat that as nothing to
// report.
func (a *Auditor) Audit(ctx context.Context, month types.Month) (types.FleetRun, error) {
	if month.IsZero() {
		month = a.defaultMonth
	}
	if month.IsZero() {
		return types.FleetRun{}, ErrNoMonth
	}

	run := types.FleetRun{
		ID:           uuid.NewString(),
		CreatedAt:    a.now().UTC(),
		FleetSummary: a.runner.Run(ctx, a.plants, month, a.params),
	}
	if err := a.db.SaveRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to archive run %s: %w", run.ID, err)
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"archived fleet run",
		slog.String("runID", run.ID),
		slog.String("month", month.String()),
		slog.Bool("empty", run.Empty()),
	)
	return run, nil
}
