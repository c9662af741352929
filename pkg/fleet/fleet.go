// Package fleet runs the plant analysis over every configured plant and
// collects the ordered summary.
package fleet

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/ingest"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/irradiance"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/pvmodel"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

// PlantAnalyzer analyzes one plant. *analyzer.Analyzer implements it.
type PlantAnalyzer interface {
	Analyze(ctx context.Context, plant types.PlantConfig, month types.Month, params pvmodel.Params) (types.MonthlyAnalysisResult, bool, error)
}

// Runner runs a PlantAnalyzer across a fleet.
type Runner struct {
	analyzer PlantAnalyzer
	workers  int
}

// NewRunner returns a Runner analyzing up to workers plants at once. Anything
// below 1 means sequential.
func NewRunner(a PlantAnalyzer, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		analyzer: a,
		workers:  workers,
	}
}

type outcome struct {
	result types.MonthlyAnalysisResult
	passed bool
	err    error
}

// Run analyzes every plant for month and returns the summary. A failing plant
// never stops the run; it is recorded in Skipped instead. Results keep the
// order of plants regardless of the worker count.
func (r *Runner) Run(ctx context.Context, plants []types.PlantConfig, month types.Month, params pvmodel.Params) types.FleetSummary {
	outcomes := make([]outcome, len(plants))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, plant := range plants {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = outcome{err: err}
				return nil
			}
			res, passed, err := r.analyzer.Analyze(ctx, plant, month, params)
			outcomes[i] = outcome{result: res, passed: passed, err: err}
			return nil
		})
	}
	// the closures never return an error
	_ = g.Wait()

	summary := types.FleetSummary{
		Month:      month,
		TiltFactor: params.TiltFactor,
		SystemLoss: params.SystemLoss,
		Results:    []types.MonthlyAnalysisResult{},
	}
	for i, plant := range plants {
		o := outcomes[i]
		switch {
		case o.err != nil:
			reason := Reason(o.err)
			log.Ctx(ctx).ErrorContext(
				ctx,
				"skipping plant",
				slog.String("plantID", plant.ID),
				slog.String("reason", string(reason)),
				slog.Any("error", o.err),
			)
			summary.Skipped = append(summary.Skipped, types.PlantDiagnostic{
				PlantID: plant.ID,
				Reason:  reason,
				Error:   o.err.Error(),
			})
			plantsTotal.WithLabelValues("skipped").Inc()
			performanceRatio.DeleteLabelValues(plant.ID)
		case !o.passed:
			summary.Discarded = append(summary.Discarded, types.PlantDiagnostic{
				PlantID:          plant.ID,
				Reason:           types.DiagnosticQualityGate,
				PerformanceRatio: o.result.PerformanceRatio,
			})
			plantsTotal.WithLabelValues("discarded").Inc()
			performanceRatio.DeleteLabelValues(plant.ID)
		default:
			summary.Results = append(summary.Results, o.result)
			plantsTotal.WithLabelValues("analyzed").Inc()
			performanceRatio.WithLabelValues(plant.ID).Set(o.result.PerformanceRatio)
		}
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"fleet run finished",
		slog.String("month", month.String()),
		slog.Int("plants", len(plants)),
		slog.Int("results", len(summary.Results)),
		slog.Int("skipped", len(summary.Skipped)),
		slog.Int("discarded", len(summary.Discarded)),
	)
	return summary
}

// Reason maps a plant failure to its diagnostic reason.
func Reason(err error) types.DiagnosticReason {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return types.DiagnosticCanceled
	case errors.Is(err, ingest.ErrSourceUnreadable):
		return types.DiagnosticSourceUnreadable
	case errors.Is(err, ingest.ErrColumnNotFound):
		return types.DiagnosticColumnNotFound
	case errors.Is(err, irradiance.ErrIrradianceUnavailable):
		return types.DiagnosticIrradianceUnavailable
	default:
		return types.DiagnosticFailed
	}
}
