package report

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

func testSummary() types.FleetSummary {
	return types.FleetSummary{
		Month:      types.MustParseMonth("2026-01"),
		TiltFactor: 1.35,
		SystemLoss: 0.85,
		Results: []types.MonthlyAnalysisResult{
			{PlantID: "GES-01", CapacityKWp: 1000, ActualKWh: 3000.04, ExpectedKWh: 3442.5, PerformanceRatio: 87.14684, Classification: types.ClassificationExcellent},
			{PlantID: "GES-02", CapacityKWp: 750, ActualKWh: 2000, ExpectedKWh: 2600, PerformanceRatio: 76.923, Classification: types.ClassificationStandard},
			{PlantID: "GES-03", CapacityKWp: 500, ActualKWh: 900, ExpectedKWh: 1800, PerformanceRatio: 50, Classification: types.ClassificationReviewNeeded},
		},
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3000.0, RoundKWh(3000.04))
	assert.Equal(t, 3000.1, RoundKWh(3000.05))
	assert.Equal(t, 87.15, RoundPR(87.14684))
	assert.Equal(t, 76.92, RoundPR(76.923))
}

func TestRender(t *testing.T) {
	f, err := Render(testSummary())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, ChartSheet}, f.GetSheetList())

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Plant ID", "Capacity (kWp)", "Actual Prod. (kWh)", "Expected Prod. (kWh)", "PR (%)", "Status"}, rows[0])
	assert.Equal(t, []string{"GES-01", "1000", "3000", "3442.5", "87.15", "Excellent"}, rows[1])
	assert.Equal(t, "Standard", rows[2][5])
	assert.Equal(t, "Review Needed", rows[3][5])

	width, err := f.GetColWidth(SummarySheet, "A")
	require.NoError(t, err)
	assert.Equal(t, 20.0, width)
	width, err = f.GetColWidth(SummarySheet, "F")
	require.NoError(t, err)
	assert.Equal(t, 25.0, width)

	t.Run("StatusStyles", func(t *testing.T) {
		style := func(cell string) int {
			id, err := f.GetCellStyle(SummarySheet, cell)
			require.NoError(t, err)
			return id
		}
		// PR and Status share the classification style
		assert.Equal(t, style("E2"), style("F2"))
		assert.Equal(t, style("E4"), style("F4"))
		assert.NotEqual(t, style("F2"), style("F3"))
		assert.NotEqual(t, style("F3"), style("F4"))
		assert.NotEqual(t, style("D2"), style("F2"))
		assert.NotEqual(t, style("A1"), style("A2"))
	})

	t.Run("ChartData", func(t *testing.T) {
		rows, err := f.GetRows(ChartSheet)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"Plant ID", "Excellent", "Standard", "Review Needed", "KPI Target"}, rows[0])
		assert.Equal(t, []string{"GES-01", "87.15", "", "", "80"}, rows[1])
		assert.Equal(t, []string{"GES-02", "", "76.92", "", "80"}, rows[2])
		assert.Equal(t, []string{"GES-03", "", "", "50", "80"}, rows[3])
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := Render(types.FleetSummary{Month: types.MustParseMonth("2026-01")})
		assert.ErrorIs(t, err, ErrEmptySummary)
	})
}

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, testSummary()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(SummarySheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "GES-01", v)
}

func TestWriter(t *testing.T) {
	ctx := context.Background()

	t.Run("VersionsOnCollision", func(t *testing.T) {
		dir := t.TempDir()
		w := NewWriter(dir, DefaultName)
		require.NoError(t, w.Validate())

		var paths []string
		for range 3 {
			p, err := w.Write(ctx, testSummary())
			require.NoError(t, err)
			paths = append(paths, p)
		}
		assert.Equal(t, []string{
			filepath.Join(dir, "SOLAR_PERFORMANCE_REPORT.xlsx"),
			filepath.Join(dir, "SOLAR_PERFORMANCE_REPORT_v1.xlsx"),
			filepath.Join(dir, "SOLAR_PERFORMANCE_REPORT_v2.xlsx"),
		}, paths)
		for _, p := range paths {
			info, err := os.Stat(p)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		}
	})

	t.Run("ExistingFileUntouched", func(t *testing.T) {
		dir := t.TempDir()
		existing := filepath.Join(dir, DefaultName)
		require.NoError(t, os.WriteFile(existing, []byte("keep"), 0o644))

		p, err := NewWriter(dir, DefaultName).Write(ctx, testSummary())
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "SOLAR_PERFORMANCE_REPORT_v1.xlsx"), p)

		data, err := os.ReadFile(existing)
		require.NoError(t, err)
		assert.Equal(t, "keep", string(data))
	})

	t.Run("Concurrent", func(t *testing.T) {
		dir := t.TempDir()
		w := NewWriter(dir, DefaultName)
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			paths = map[string]bool{}
		)
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p, err := w.Write(ctx, testSummary())
				assert.NoError(t, err)
				mu.Lock()
				paths[p] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, paths, 5)
	})

	t.Run("EmptySummaryWritesNothing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		_, err := NewWriter(dir, DefaultName).Write(ctx, types.FleetSummary{})
		assert.ErrorIs(t, err, ErrEmptySummary)
		_, err = os.Stat(dir)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("CreatesDirectory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "out")
		p, err := NewWriter(dir, DefaultName).Write(ctx, testSummary())
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, DefaultName), p)
	})
}

func TestWriterValidate(t *testing.T) {
	assert.NoError(t, NewWriter(".", DefaultName).Validate())
	assert.Error(t, NewWriter("", DefaultName).Validate())
	assert.Error(t, NewWriter(".", "").Validate())
	assert.Error(t, NewWriter(".", "sub/report.xlsx").Validate())
	assert.Error(t, NewWriter(".", "report.csv").Validate())
}
