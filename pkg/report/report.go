// Package report renders a fleet summary as an Excel workbook.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

// ErrEmptySummary is returned when asked to render a summary without results.
var ErrEmptySummary = errors.New("no results to report")

const (
	SummarySheet = "Summary"
	ChartSheet   = "Chart"

	// KPITarget is the performance ratio drawn as the target line.
	KPITarget = 80.0

	headerColor = "002060"
	kpiColor    = "2980B9"
)

var summaryHeaders = []any{
	"Plant ID",
	"Capacity (kWp)",
	"Actual Prod. (kWh)",
	"Expected Prod. (kWh)",
	"PR (%)",
	"Status",
}

type palette struct {
	cell string
	bar  string
}

var colors = map[types.Classification]palette{
	types.ClassificationExcellent:    {cell: "C6EFCE", bar: "27AE60"},
	types.ClassificationStandard:     {cell: "FFEB9C", bar: "F1C40F"},
	types.ClassificationReviewNeeded: {cell: "FFC7CE", bar: "E74C3C"},
}

// chart series in legend order
var seriesOrder = []types.Classification{
	types.ClassificationExcellent,
	types.ClassificationStandard,
	types.ClassificationReviewNeeded,
}

// RoundKWh rounds an energy value for display.
func RoundKWh(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

// RoundPR rounds a performance ratio for display.
func RoundPR(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Title is the chart title for month.
func Title(month types.Month) string {
	return fmt.Sprintf("Solar Fleet Performance Audit - %s", month)
}

// Render builds the workbook for summary. The caller must Close it.
func Render(summary types.FleetSummary) (*excelize.File, error) {
	if summary.Empty() {
		return nil, ErrEmptySummary
	}

	f := excelize.NewFile()
	if err := renderSummary(f, summary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to render summary sheet: %w", err)
	}
	if err := renderChart(f, summary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to render chart sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   Title(summary.Month),
		Creator: "solaraudit",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WriteTo renders summary and writes the workbook to w.
func WriteTo(w io.Writer, summary types.FleetSummary) error {
	f, err := Render(summary)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func renderSummary(f *excelize.File, summary types.FleetSummary) error {
	if err := f.SetSheetName(f.GetSheetList()[0], SummarySheet); err != nil {
		return err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Border:    border,
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Alignment: center,
	})
	if err != nil {
		return err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: center,
	})
	if err != nil {
		return err
	}
	statusStyles := make(map[types.Classification]int, len(colors))
	for class, p := range colors {
		id, err := f.NewStyle(&excelize.Style{
			Border:    border,
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{p.cell}},
			Alignment: center,
		})
		if err != nil {
			return err
		}
		statusStyles[class] = id
	}

	if err := f.SetSheetRow(SummarySheet, "A1", &summaryHeaders); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "F1", headerStyle); err != nil {
		return err
	}

	for i, res := range summary.Results {
		row := i + 2
		values := []any{
			res.PlantID,
			res.CapacityKWp,
			RoundKWh(res.ActualKWh),
			RoundKWh(res.ExpectedKWh),
			RoundPR(res.PerformanceRatio),
			string(res.Classification),
		}
		start := cellName(1, row)
		if err := f.SetSheetRow(SummarySheet, start, &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(SummarySheet, start, cellName(4, row), cellStyle); err != nil {
			return err
		}
		style, ok := statusStyles[res.Classification]
		if !ok {
			style = cellStyle
		}
		if err := f.SetCellStyle(SummarySheet, cellName(5, row), cellName(6, row), style); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SummarySheet, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "B", "F", 25)
}

// renderChart writes the chart's data table and the chart itself. Excel has
// no per-bar colors for a single series so each classification gets its own
// series, blank where a plant belongs to another one, drawn fully
// overlapped.
func renderChart(f *excelize.File, summary types.FleetSummary) error {
	if _, err := f.NewSheet(ChartSheet); err != nil {
		return err
	}

	header := []any{"Plant ID"}
	for _, class := range seriesOrder {
		header = append(header, string(class))
	}
	header = append(header, "KPI Target")
	if err := f.SetSheetRow(ChartSheet, "A1", &header); err != nil {
		return err
	}

	for i, res := range summary.Results {
		row := []any{res.PlantID}
		for _, class := range seriesOrder {
			if res.Classification == class {
				row = append(row, RoundPR(res.PerformanceRatio))
			} else {
				row = append(row, nil)
			}
		}
		row = append(row, KPITarget)
		if err := f.SetSheetRow(ChartSheet, cellName(1, i+2), &row); err != nil {
			return err
		}
	}

	last := len(summary.Results) + 1
	categories := fmt.Sprintf("%s!$A$2:$A$%d", ChartSheet, last)
	var series []excelize.ChartSeries
	for i, class := range seriesOrder {
		col := columnName(i + 2)
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", ChartSheet, col),
			Categories: categories,
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", ChartSheet, col, col, last),
			Fill:       excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colors[class].bar}},
		})
	}

	overlap := 100
	gap := uint(50)
	yMin, yMax := 0.0, 100.0
	bars := &excelize.Chart{
		Type:   excelize.Col,
		Series: series,
		Title: []excelize.RichTextRun{{
			Text: Title(summary.Month),
			Font: &excelize.Font{Bold: true, Size: 14},
		}},
		Dimension:    excelize.ChartDimension{Width: 960, Height: 480},
		Legend:       excelize.ChartLegend{Position: "bottom"},
		PlotArea:     excelize.ChartPlotArea{ShowVal: true},
		YAxis:        excelize.ChartAxis{MajorGridLines: true, Minimum: &yMin, Maximum: &yMax},
		ShowBlanksAs: "gap",
		Overlap:      &overlap,
		GapWidth:     &gap,
	}
	kpiCol := columnName(len(seriesOrder) + 2)
	kpi := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$%s$1", ChartSheet, kpiCol),
			Categories: categories,
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", ChartSheet, kpiCol, kpiCol, last),
			Line: excelize.ChartLine{
				Type:  excelize.ChartLineSolid,
				Dash:  excelize.ChartDashDash,
				Width: 2,
				Fill:  excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{kpiColor}},
			},
		}},
	}
	return f.AddChart(ChartSheet, "G2", bars, kpi)
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		// col and row are always positive here
		panic(err)
	}
	return name
}

func columnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		panic(err)
	}
	return name
}
