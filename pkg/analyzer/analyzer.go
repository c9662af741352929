// Package analyzer computes the monthly performance ratio of a single plant.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/ingest"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/irradiance"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/pvmodel"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

const (
	// QualityGateMaxPR is the highest performance ratio considered
	// physically plausible. Results above it are discarded.
	QualityGateMaxPR = 100.0

	// ExcellentMinPR is the lowest performance ratio classified Excellent.
	ExcellentMinPR = 85.0
	// StandardMinPR is the lowest performance ratio classified Standard.
	// Anything below needs review.
	StandardMinPR = 70.0
)

// Stage names where an analysis failed.
const (
	StageIngest     = "ingest"
	StageIrradiance = "irradiance"
)

// AnalysisError wraps the cause of a failed plant analysis.
type AnalysisError struct {
	PlantID string
	Stage   string
	Err     error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("plant %s: %s failed: %v", e.PlantID, e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// SourceOpener opens the yield source of a plant.
type SourceOpener func(path string) (ingest.Source, error)

// Analyzer joins metered yield with modeled yield for one plant at a time.
// It holds no per-plant state and is safe for concurrent use.
type Analyzer struct {
	ingestor *ingest.Ingestor
	provider irradiance.Provider
	open     SourceOpener
}

// New returns an Analyzer. A nil open uses ingest.OpenSource.
func New(ingestor *ingest.Ingestor, provider irradiance.Provider, open SourceOpener) *Analyzer {
	if open == nil {
		open = ingest.OpenSource
	}
	return &Analyzer{
		ingestor: ingestor,
		provider: provider,
		open:     open,
	}
}

// Analyze computes the result for plant over month. The returned bool is
// false when the result failed the quality gate and must not be reported.
// Failures are returned as *AnalysisError.
func (a *Analyzer) Analyze(ctx context.Context, plant types.PlantConfig, month types.Month, params pvmodel.Params) (types.MonthlyAnalysisResult, bool, error) {
	ctx = log.WithPlant(ctx, plant.ID)

	src, err := a.open(plant.Source)
	if err != nil {
		return types.MonthlyAnalysisResult{}, false, &AnalysisError{PlantID: plant.ID, Stage: StageIngest, Err: err}
	}
	yields, err := a.ingestor.Extract(ctx, src, month)
	if err != nil {
		return types.MonthlyAnalysisResult{}, false, &AnalysisError{PlantID: plant.ID, Stage: StageIngest, Err: err}
	}

	irr, err := a.provider.FetchDaily(ctx, plant.Latitude, plant.Longitude, month.FirstDay(), month.LastDay())
	if err != nil {
		return types.MonthlyAnalysisResult{}, false, &AnalysisError{PlantID: plant.ID, Stage: StageIrradiance, Err: err}
	}

	actual, expected, matched := Join(yields, irr, plant.CapacityKWp, params)
	if matched == 0 {
		log.Ctx(ctx).WarnContext(
			ctx,
			"no dates overlap between yield and irradiance",
			slog.Int("yieldDays", len(yields)),
			slog.Int("irradianceDays", len(irr)),
		)
	}

	pr := PerformanceRatio(actual, expected)
	res := types.MonthlyAnalysisResult{
		PlantID:          plant.ID,
		CapacityKWp:      plant.CapacityKWp,
		ActualKWh:        actual,
		ExpectedKWh:      expected,
		PerformanceRatio: pr,
		Classification:   Classify(pr),
		MatchedDays:      matched,
	}

	if !PassesQualityGate(pr) {
		log.Ctx(ctx).WarnContext(
			ctx,
			"discarding implausible performance ratio",
			slog.Float64("performanceRatio", pr),
			slog.Float64("actualKWh", actual),
			slog.Float64("expectedKWh", expected),
		)
		return res, false, nil
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"analyzed plant",
		slog.Float64("performanceRatio", pr),
		slog.String("classification", string(res.Classification)),
		slog.Int("matchedDays", matched),
	)
	return res, true, nil
}

// Join inner-joins yields and irradiance by date and returns the summed
// actual and expected kWh over the matched dates.
func Join(yields []types.DailyYield, irr []types.DailyIrradiance, capacityKWp float64, params pvmodel.Params) (actual, expected float64, matched int) {
	byDate := make(map[string]float64, len(irr))
	for _, r := range irr {
		key := types.DateKey(r.Date)
		if _, ok := byDate[key]; !ok {
			byDate[key] = r.KWhPerM2
		}
	}
	for _, y := range yields {
		v, ok := byDate[types.DateKey(y.Date)]
		if !ok {
			continue
		}
		actual += y.KWh
		expected += params.Expected(v, capacityKWp)
		matched++
	}
	return actual, expected, matched
}

// PerformanceRatio returns actual as a percentage of expected, or 0 when
// nothing was expected.
func PerformanceRatio(actual, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	return actual / expected * 100
}

// PassesQualityGate reports whether pr is physically plausible.
func PassesQualityGate(pr float64) bool {
	return pr <= QualityGateMaxPR
}

// Classify buckets a performance ratio.
func Classify(pr float64) types.Classification {
	switch {
	case pr >= ExcellentMinPR:
		return types.ClassificationExcellent
	case pr >= StandardMinPR:
		return types.ClassificationStandard
	default:
		return types.ClassificationReviewNeeded
	}
}
