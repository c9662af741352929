package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/ingest"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/irradiance"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/pvmodel"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

var (
	jan    = types.MustParseMonth("2026-01")
	params = pvmodel.Params{TiltFactor: 1.35, SystemLoss: 0.85}
)

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

type fixedProvider struct {
	readings []types.DailyIrradiance
	err      error
	calls    int
}

func (p *fixedProvider) FetchDaily(ctx context.Context, lat, lon float64, start, end time.Time) ([]types.DailyIrradiance, error) {
	p.calls++
	return p.readings, p.err
}

// sources maps a plant source path to spreadsheet rows with no preamble.
func opener(sources map[string][][]string) SourceOpener {
	return func(path string) (ingest.Source, error) {
		rows, ok := sources[path]
		if !ok {
			return nil, fmt.Errorf("%w: %s not found", ingest.ErrSourceUnreadable, path)
		}
		return ingest.NewMemorySource(path, rows), nil
	}
}

func newTestAnalyzer(provider irradiance.Provider, sources map[string][][]string) *Analyzer {
	cfg := ingest.DefaultConfig()
	cfg.HeaderRow = 0
	return New(ingest.NewIngestor(cfg), provider, opener(sources))
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	plant := types.PlantConfig{ID: "GES-01", Source: "ges01.xlsx", CapacityKWp: 1000, Latitude: 37.9, Longitude: 32.5}

	t.Run("EndToEnd", func(t *testing.T) {
		provider := &fixedProvider{readings: []types.DailyIrradiance{{Date: day(1), KWhPerM2: 3}}}
		a := newTestAnalyzer(provider, map[string][][]string{
			"ges01.xlsx": {{"Date", "Production"}, {"2026-01-01", "3000"}},
		})
		res, ok, err := a.Analyze(ctx, plant, jan, params)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "GES-01", res.PlantID)
		assert.Equal(t, 1000.0, res.CapacityKWp)
		assert.Equal(t, 3000.0, res.ActualKWh)
		assert.InDelta(t, 3442.5, res.ExpectedKWh, 1e-9)
		assert.InDelta(t, 87.146, res.PerformanceRatio, 0.001)
		assert.Equal(t, types.ClassificationExcellent, res.Classification)
		assert.Equal(t, 1, res.MatchedDays)
	})

	t.Run("OnlyMatchedDatesCount", func(t *testing.T) {
		provider := &fixedProvider{readings: []types.DailyIrradiance{
			{Date: day(1), KWhPerM2: 3},
			{Date: day(2), KWhPerM2: 4},
		}}
		a := newTestAnalyzer(provider, map[string][][]string{
			"ges01.xlsx": {{"Date", "Production"}, {"2026-01-01", "3000"}, {"2026-01-03", "9000"}},
		})
		res, ok, err := a.Analyze(ctx, plant, jan, params)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3000.0, res.ActualKWh)
		assert.InDelta(t, 3442.5, res.ExpectedKWh, 1e-9)
		assert.Equal(t, 1, res.MatchedDays)
	})

	t.Run("ZeroOverlap", func(t *testing.T) {
		provider := &fixedProvider{readings: []types.DailyIrradiance{{Date: day(2), KWhPerM2: 3}}}
		a := newTestAnalyzer(provider, map[string][][]string{
			"ges01.xlsx": {{"Date", "Production"}, {"2026-01-01", "3000"}},
		})
		res, ok, err := a.Analyze(ctx, plant, jan, params)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0.0, res.ExpectedKWh)
		assert.Equal(t, 0.0, res.PerformanceRatio)
		assert.Equal(t, types.ClassificationReviewNeeded, res.Classification)
		assert.Equal(t, 0, res.MatchedDays)
	})

	t.Run("QualityGateDiscard", func(t *testing.T) {
		provider := &fixedProvider{readings: []types.DailyIrradiance{{Date: day(1), KWhPerM2: 3}}}
		a := newTestAnalyzer(provider, map[string][][]string{
			"ges01.xlsx": {{"Date", "Production"}, {"2026-01-01", "4000"}},
		})
		res, ok, err := a.Analyze(ctx, plant, jan, params)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Greater(t, res.PerformanceRatio, 100.0)
	})

	t.Run("SourceUnreadable", func(t *testing.T) {
		provider := &fixedProvider{}
		a := newTestAnalyzer(provider, nil)
		_, _, err := a.Analyze(ctx, plant, jan, params)
		require.Error(t, err)
		assert.ErrorIs(t, err, ingest.ErrSourceUnreadable)

		var aerr *AnalysisError
		require.True(t, errors.As(err, &aerr))
		assert.Equal(t, "GES-01", aerr.PlantID)
		assert.Equal(t, StageIngest, aerr.Stage)
		assert.Equal(t, 0, provider.calls)
	})

	t.Run("ColumnNotFound", func(t *testing.T) {
		a := newTestAnalyzer(&fixedProvider{}, map[string][][]string{
			"ges01.xlsx": {{"Date", "Temperature"}, {"2026-01-01", "12"}},
		})
		_, _, err := a.Analyze(ctx, plant, jan, params)
		assert.ErrorIs(t, err, ingest.ErrColumnNotFound)
	})

	t.Run("IrradianceUnavailable", func(t *testing.T) {
		provider := &fixedProvider{err: fmt.Errorf("%w after 3 attempts: boom", irradiance.ErrIrradianceUnavailable)}
		a := newTestAnalyzer(provider, map[string][][]string{
			"ges01.xlsx": {{"Date", "Production"}, {"2026-01-01", "3000"}},
		})
		_, _, err := a.Analyze(ctx, plant, jan, params)
		assert.ErrorIs(t, err, irradiance.ErrIrradianceUnavailable)

		var aerr *AnalysisError
		require.True(t, errors.As(err, &aerr))
		assert.Equal(t, StageIrradiance, aerr.Stage)
	})
}

func TestPerformanceRatio(t *testing.T) {
	assert.Equal(t, 0.0, PerformanceRatio(100, 0))
	assert.Equal(t, 0.0, PerformanceRatio(100, -1))
	assert.InDelta(t, 50.0, PerformanceRatio(50, 100), 1e-9)

	t.Run("IncreasingActual", func(t *testing.T) {
		prev := -1.0
		for actual := 0.0; actual <= 5000; actual += 250 {
			pr := PerformanceRatio(actual, 3442.5)
			assert.Greater(t, pr, prev)
			prev = pr
		}
	})

	t.Run("IncreasingExpected", func(t *testing.T) {
		prev := PerformanceRatio(3000, 250)
		for expected := 500.0; expected <= 5000; expected += 250 {
			pr := PerformanceRatio(3000, expected)
			assert.Less(t, pr, prev, "expected=%v", expected)
			prev = pr
		}
	})
}

func TestPassesQualityGate(t *testing.T) {
	assert.True(t, PassesQualityGate(0))
	assert.True(t, PassesQualityGate(100.0))
	assert.False(t, PassesQualityGate(100.0001))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		pr   float64
		want types.Classification
	}{
		{100, types.ClassificationExcellent},
		{85.0, types.ClassificationExcellent},
		{84.999, types.ClassificationStandard},
		{70.0, types.ClassificationStandard},
		{69.999, types.ClassificationReviewNeeded},
		{0, types.ClassificationReviewNeeded},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.pr), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.pr))
		})
	}
}

func TestJoin(t *testing.T) {
	yields := []types.DailyYield{{Date: day(1), KWh: 10}, {Date: day(2), KWh: 20}}
	irr := []types.DailyIrradiance{{Date: day(2), KWhPerM2: 2}, {Date: day(3), KWhPerM2: 5}}
	actual, expected, matched := Join(yields, irr, 10, pvmodel.Params{TiltFactor: 1, SystemLoss: 1})
	assert.Equal(t, 20.0, actual)
	assert.Equal(t, 20.0, expected)
	assert.Equal(t, 1, matched)
}
