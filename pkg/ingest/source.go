package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Source is a tabular data source for one plant.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Rows returns every row of the source, including any leading rows
	// before the header.
	Rows(ctx context.Context) ([][]string, error)
}

// OpenSource returns a Source for the file at path based on its extension.
// A missing file or an unsupported extension returns ErrSourceUnreadable.
func OpenSource(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceUnreadable, path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return &XLSXSource{path: path}, nil
	case ".csv":
		return &CSVSource{path: path}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrSourceUnreadable, filepath.Ext(path))
	}
}

// XLSXSource reads the first worksheet of an Excel workbook.
type XLSXSource struct {
	path string
}

// Name implements Source.
func (s *XLSXSource) Name() string {
	return s.path
}

// Rows implements Source. Cells are returned unformatted so date cells come
// back as Excel serial numbers.
func (s *XLSXSource) Rows(ctx context.Context) ([][]string, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook %s: %w", ErrSourceUnreadable, s.path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", ErrSourceUnreadable, s.path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q of %s: %w", ErrSourceUnreadable, sheets[0], s.path, err)
	}
	return rows, nil
}

// CSVSource reads a comma or semicolon separated file.
type CSVSource struct {
	path string
}

// Name implements Source.
func (s *CSVSource) Name() string {
	return s.path
}

// Rows implements Source.
func (s *CSVSource) Rows(ctx context.Context) ([][]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse csv %s: %w", ErrSourceUnreadable, s.path, err)
	}
	return rows, nil
}

// sniffDelimiter picks ';' over ',' when the first lines use it more often,
// which is how spreadsheets in comma-decimal locales export CSV.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var commas, semis int
	for i := 0; i < 10 && sc.Scan(); i++ {
		line := sc.Text()
		commas += strings.Count(line, ",")
		semis += strings.Count(line, ";")
	}
	if semis > commas {
		return ';'
	}
	return ','
}

// MemorySource is a Source over rows already in memory.
type MemorySource struct {
	name string
	rows [][]string
}

// NewMemorySource returns a Source serving rows.
func NewMemorySource(name string, rows [][]string) *MemorySource {
	return &MemorySource{name: name, rows: rows}
}

// Name implements Source.
func (s *MemorySource) Name() string {
	return s.name
}

// Rows implements Source.
func (s *MemorySource) Rows(ctx context.Context) ([][]string, error) {
	return s.rows, nil
}
