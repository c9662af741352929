package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
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

type fakeAnalyzer struct {
	mu       sync.Mutex
	results  map[string]types.MonthlyAnalysisResult
	errs     map[string]error
	jitter   bool
	active   atomic.Int32
	maxSeen  atomic.Int32
	analyzed []string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, plant types.PlantConfig, month types.Month, params pvmodel.Params) (types.MonthlyAnalysisResult, bool, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}

	f.mu.Lock()
	f.analyzed = append(f.analyzed, plant.ID)
	f.mu.Unlock()

	if err, ok := f.errs[plant.ID]; ok {
		return types.MonthlyAnalysisResult{}, false, err
	}
	res := f.results[plant.ID]
	res.PlantID = plant.ID
	return res, res.PerformanceRatio <= 100, nil
}

func plants(ids ...string) []types.PlantConfig {
	out := make([]types.PlantConfig, len(ids))
	for i, id := range ids {
		out[i] = types.PlantConfig{ID: id, Source: id + ".xlsx", CapacityKWp: 1000}
	}
	return out
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("MixedOutcomes", func(t *testing.T) {
		a := &fakeAnalyzer{
			results: map[string]types.MonthlyAnalysisResult{
				"A": {PerformanceRatio: 90, Classification: types.ClassificationExcellent},
				"C": {PerformanceRatio: 120},
				"D": {PerformanceRatio: 60, Classification: types.ClassificationReviewNeeded},
			},
			errs: map[string]error{
				"B": fmt.Errorf("plant B: ingest failed: %w", ingest.ErrSourceUnreadable),
			},
		}
		summary := NewRunner(a, 1).Run(ctx, plants("A", "B", "C", "D"), jan, params)

		assert.Equal(t, jan, summary.Month)
		assert.Equal(t, 1.35, summary.TiltFactor)
		assert.Equal(t, 0.85, summary.SystemLoss)
		require.Len(t, summary.Results, 2)
		assert.Equal(t, "A", summary.Results[0].PlantID)
		assert.Equal(t, "D", summary.Results[1].PlantID)

		require.Len(t, summary.Skipped, 1)
		assert.Equal(t, "B", summary.Skipped[0].PlantID)
		assert.Equal(t, types.DiagnosticSourceUnreadable, summary.Skipped[0].Reason)
		assert.Contains(t, summary.Skipped[0].Error, "source unreadable")

		require.Len(t, summary.Discarded, 1)
		assert.Equal(t, "C", summary.Discarded[0].PlantID)
		assert.Equal(t, types.DiagnosticQualityGate, summary.Discarded[0].Reason)
		assert.Equal(t, 120.0, summary.Discarded[0].PerformanceRatio)

		assert.False(t, summary.Empty())
		assert.Equal(t, []string{"A", "B", "C", "D"}, a.analyzed)
	})

	t.Run("AllFailedIsEmpty", func(t *testing.T) {
		a := &fakeAnalyzer{errs: map[string]error{
			"A": irradiance.ErrIrradianceUnavailable,
			"B": ingest.ErrColumnNotFound,
		}}
		summary := NewRunner(a, 1).Run(ctx, plants("A", "B"), jan, params)
		assert.True(t, summary.Empty())
		assert.NotNil(t, summary.Results)
		assert.Len(t, summary.Skipped, 2)
	})

	t.Run("NoPlants", func(t *testing.T) {
		summary := NewRunner(&fakeAnalyzer{}, 1).Run(ctx, nil, jan, params)
		assert.True(t, summary.Empty())
	})

	t.Run("ParallelKeepsOrder", func(t *testing.T) {
		ids := make([]string, 40)
		results := map[string]types.MonthlyAnalysisResult{}
		for i := range ids {
			ids[i] = fmt.Sprintf("GES-%02d", i)
			results[ids[i]] = types.MonthlyAnalysisResult{PerformanceRatio: float64(50 + i)}
		}
		a := &fakeAnalyzer{results: results, jitter: true}
		summary := NewRunner(a, 8).Run(ctx, plants(ids...), jan, params)

		require.Len(t, summary.Results, len(ids))
		for i, res := range summary.Results {
			assert.Equal(t, ids[i], res.PlantID)
		}
		assert.LessOrEqual(t, a.maxSeen.Load(), int32(8))
	})

	t.Run("SequentialByDefault", func(t *testing.T) {
		a := &fakeAnalyzer{results: map[string]types.MonthlyAnalysisResult{}, jitter: true}
		NewRunner(a, 0).Run(ctx, plants("A", "B", "C"), jan, params)
		assert.Equal(t, int32(1), a.maxSeen.Load())
	})

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		a := &fakeAnalyzer{}
		summary := NewRunner(a, 1).Run(cctx, plants("A", "B"), jan, params)
		assert.True(t, summary.Empty())
		require.Len(t, summary.Skipped, 2)
		assert.Equal(t, types.DiagnosticCanceled, summary.Skipped[0].Reason)
		assert.Empty(t, a.analyzed)
	})
}

func TestRunPerformanceRatioGauge(t *testing.T) {
	ctx := context.Background()
	ids := plants("gauge-kept", "gauge-skipped", "gauge-discarded")

	first := &fakeAnalyzer{results: map[string]types.MonthlyAnalysisResult{
		"gauge-kept":      {PerformanceRatio: 90},
		"gauge-skipped":   {PerformanceRatio: 80},
		"gauge-discarded": {PerformanceRatio: 75},
	}}
	summary := NewRunner(first, 1).Run(ctx, ids, jan, params)
	require.Len(t, summary.Results, 3)

	second := &fakeAnalyzer{
		results: map[string]types.MonthlyAnalysisResult{
			"gauge-kept":      {PerformanceRatio: 91},
			"gauge-discarded": {PerformanceRatio: 140},
		},
		errs: map[string]error{"gauge-skipped": ingest.ErrSourceUnreadable},
	}
	summary = NewRunner(second, 1).Run(ctx, ids, jan, params)
	require.Len(t, summary.Results, 1)

	// only the plant that still has a result keeps its series
	assert.False(t, performanceRatio.DeleteLabelValues("gauge-skipped"))
	assert.False(t, performanceRatio.DeleteLabelValues("gauge-discarded"))
	assert.True(t, performanceRatio.DeleteLabelValues("gauge-kept"))
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want types.DiagnosticReason
	}{
		{fmt.Errorf("x: %w", ingest.ErrSourceUnreadable), types.DiagnosticSourceUnreadable},
		{fmt.Errorf("x: %w", ingest.ErrColumnNotFound), types.DiagnosticColumnNotFound},
		{fmt.Errorf("x: %w", irradiance.ErrIrradianceUnavailable), types.DiagnosticIrradianceUnavailable},
		{fmt.Errorf("x: %w", context.DeadlineExceeded), types.DiagnosticCanceled},
		{errors.New("other"), types.DiagnosticFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Reason(tt.err), tt.err.Error())
	}
}
