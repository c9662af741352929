package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
	"github.com/xuri/excelize/v2"
)

// the latest date Excel can represent, 9999-12-31
const maxExcelSerial = 2958465

var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"02.01.2006",
	"02.01.2006 15:04",
	"02.01.2006 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006/01/02",
	"20060102",
}

// parseDate parses a raw cell into a calendar date. Excel serial numbers and
// the layouts in dateLayouts are accepted.
func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 1 && v <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(v, false)
		if err != nil {
			return time.Time{}, false
		}
		return types.DateOf(t), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return types.DateOf(t), true
		}
	}
	return time.Time{}, false
}

// parseValue parses a production cell. Blank cells count as zero. With an
// explicit decimalSep the other separator is treated as digit grouping.
// Otherwise the separator is inferred: when both appear the last one is the
// decimal point, a separator repeated within the number is grouping and a
// single comma is a decimal comma ("1234,5").
func parseValue(raw, decimalSep string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, true
	}
	s = strings.ReplaceAll(s, " ", "")
	switch decimalSep {
	case ".":
		s = strings.ReplaceAll(s, ",", "")
	case ",":
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = normalizeSeparators(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func normalizeSeparators(s string) string {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case commas == 1:
		return strings.Replace(s, ",", ".", 1)
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}
