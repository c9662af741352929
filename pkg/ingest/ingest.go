// Package ingest extracts the daily metered yield of a plant from its
// spreadsheet export.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

var (
	// ErrSourceUnreadable is returned when a source is missing or does not
	// have the expected layout.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrColumnNotFound is returned when no header matches the configured
	// column synonyms.
	ErrColumnNotFound = errors.New("column not found")
)

const (
	// NormalizationThreshold is the mean below which a month of values is
	// assumed to be in MWh.
	NormalizationThreshold = 100
	// NormalizationFactor converts MWh to kWh.
	NormalizationFactor = 1000
)

// DefaultHeaderRow is the number of leading rows before the header in the
// monitoring portal exports.
const DefaultHeaderRow = 5

var (
	// DefaultDateColumns are the header synonyms of the date column.
	DefaultDateColumns = []string{"tarih", "date"}
	// DefaultProductionColumns are the header synonyms of the production
	// column, in order of preference.
	DefaultProductionColumns = []string{"gerçek", "üretim", "active", "production", "yield"}
)

// Config controls how a source is interpreted.
type Config struct {
	// HeaderRow is the number of rows to skip before the header row.
	HeaderRow         int      `yaml:"headerRow"`
	DateColumns       []string `yaml:"dateColumns"`
	ProductionColumns []string `yaml:"productionColumns"`
	// DecimalSeparator is "." or "," when the export's locale is known. When
	// empty the separator is inferred per cell.
	DecimalSeparator string `yaml:"decimalSeparator,omitempty"`
}

// DefaultConfig returns the layout of the monitoring portal exports.
func DefaultConfig() Config {
	return Config{
		HeaderRow:         DefaultHeaderRow,
		DateColumns:       append([]string(nil), DefaultDateColumns...),
		ProductionColumns: append([]string(nil), DefaultProductionColumns...),
	}
}

// Validate ensures the config is usable.
func (c Config) Validate() error {
	if c.HeaderRow < 0 {
		return fmt.Errorf("header row cannot be negative: %d", c.HeaderRow)
	}
	if len(c.DateColumns) == 0 {
		return fmt.Errorf("at least one date column pattern is required")
	}
	if len(c.ProductionColumns) == 0 {
		return fmt.Errorf("at least one production column pattern is required")
	}
	switch c.DecimalSeparator {
	case "", ".", ",":
	default:
		return fmt.Errorf("decimal separator must be \".\" or \",\": %q", c.DecimalSeparator)
	}
	return nil
}

// Reading is one parsed row before deduplication.
type Reading struct {
	Date time.Time
	KWh  float64
}

// Ingestor extracts daily yield series from sources.
type Ingestor struct {
	cfg Config
}

// NewIngestor returns an Ingestor using cfg.
func NewIngestor(cfg Config) *Ingestor {
	return &Ingestor{cfg: cfg}
}

// Extract reads src and returns one record per calendar date of month, sorted
// by date, with same-day readings summed and MWh-scale months converted to
// kWh.
func (in *Ingestor) Extract(ctx context.Context, src Source, month types.Month) ([]types.DailyYield, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		if errors.Is(err, ErrSourceUnreadable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	if len(rows) <= in.cfg.HeaderRow {
		return nil, fmt.Errorf(
			"%w: %s has %d rows, expected a header after %d leading rows",
			ErrSourceUnreadable,
			src.Name(),
			len(rows),
			in.cfg.HeaderRow,
		)
	}
	header := rows[in.cfg.HeaderRow]

	prod, err := MatchColumn(in.cfg.ProductionColumns, header)
	if err != nil {
		return nil, fmt.Errorf("production column in %s: %w", src.Name(), err)
	}
	dateIdx, err := in.dateColumn(header, prod.Index)
	if err != nil {
		return nil, fmt.Errorf("date column in %s: %w", src.Name(), err)
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"detected columns",
		slog.String("source", src.Name()),
		slog.String("production", prod.Header),
		slog.String("pattern", prod.Pattern),
		slog.String("date", header[dateIdx]),
	)
	if prod.Ambiguous() {
		log.Ctx(ctx).WarnContext(
			ctx,
			"multiple production columns matched, using the first",
			slog.String("source", src.Name()),
			slog.String("chosen", prod.Header),
			slog.Any("candidates", prod.Candidates),
		)
	}

	readings := make([]Reading, 0, len(rows)-in.cfg.HeaderRow-1)
	var badDates, badValues int
	for _, row := range rows[in.cfg.HeaderRow+1:] {
		date, ok := parseDate(cell(row, dateIdx))
		if !ok {
			badDates++
			continue
		}
		value, ok := parseValue(cell(row, prod.Index), in.cfg.DecimalSeparator)
		if !ok {
			badValues++
			continue
		}
		readings = append(readings, Reading{Date: date, KWh: value})
	}
	if badDates > 0 || badValues > 0 {
		log.Ctx(ctx).DebugContext(
			ctx,
			"discarded unparseable rows",
			slog.String("source", src.Name()),
			slog.Int("badDates", badDates),
			slog.Int("badValues", badValues),
		)
	}

	yields := FilterMonth(Deduplicate(readings), month)
	if NormalizeUnits(yields) {
		log.Ctx(ctx).InfoContext(
			ctx,
			"scaled yield values from MWh to kWh",
			slog.String("source", src.Name()),
			slog.Int("days", len(yields)),
		)
	}
	return yields, nil
}

// dateColumn finds the date header, skipping the production column in case
// both sets of synonyms match it.
func (in *Ingestor) dateColumn(header []string, prodIdx int) (int, error) {
	m, err := MatchColumn(in.cfg.DateColumns, header)
	if err != nil {
		return -1, err
	}
	if m.Index != prodIdx {
		return m.Index, nil
	}
	for i, h := range header {
		if i == prodIdx {
			continue
		}
		if _, err := MatchColumn(in.cfg.DateColumns, []string{h}); err == nil {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: only the production column %q matched the date patterns", ErrColumnNotFound, header[prodIdx])
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Deduplicate groups readings by calendar date and sums their values. The
// result is sorted by date.
func Deduplicate(readings []Reading) []types.DailyYield {
	byDate := make(map[string]int, len(readings))
	out := make([]types.DailyYield, 0, len(readings))
	for _, r := range readings {
		date := types.DateOf(r.Date)
		key := types.DateKey(date)
		if i, ok := byDate[key]; ok {
			out[i].KWh += r.KWh
			continue
		}
		byDate[key] = len(out)
		out = append(out, types.DailyYield{Date: date, KWh: r.KWh})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// FilterMonth keeps only the records dated inside month.
func FilterMonth(yields []types.DailyYield, month types.Month) []types.DailyYield {
	out := yields[:0:0]
	for _, y := range yields {
		if month.Contains(y.Date) {
			out = append(out, y)
		}
	}
	return out
}

// NormalizeUnits multiplies every value by NormalizationFactor when the mean
// is below NormalizationThreshold, reporting whether it did. Empty input is
// left alone.
//
// This is a guess: a genuinely small plant reporting in kWh will be scaled
// too.
func NormalizeUnits(yields []types.DailyYield) bool {
	if len(yields) == 0 {
		return false
	}
	var sum float64
	for _, y := range yields {
		sum += y.KWh
	}
	if sum/float64(len(yields)) >= NormalizationThreshold {
		return false
	}
	for i := range yields {
		yields[i].KWh *= NormalizationFactor
	}
	return true
}

// ToReadings converts yields back into readings, mainly so a series can be
// fed through Deduplicate again.
func ToReadings(yields []types.DailyYield) []Reading {
	out := make([]Reading, len(yields))
	for i, y := range yields {
		out[i] = Reading{Date: y.Date, KWh: y.KWh}
	}
	return out
}
