package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

// DefaultName is the report file name before any collision suffix.
const DefaultName = "SOLAR_PERFORMANCE_REPORT.xlsx"

// maxVersions bounds the _vN search.
const maxVersions = 10000

// Writer saves reports into a directory without overwriting earlier ones.
type Writer struct {
	dir  string
	name string
}

// NewWriter returns a Writer saving name into dir.
func NewWriter(dir, name string) *Writer {
	return &Writer{dir: dir, name: name}
}

// Validate ensures the writer is usable.
func (w *Writer) Validate() error {
	if w.dir == "" {
		return errors.New("output directory is required")
	}
	if w.name == "" {
		return errors.New("report name is required")
	}
	if filepath.Base(w.name) != w.name {
		return fmt.Errorf("report name must not contain a directory: %q", w.name)
	}
	if !strings.EqualFold(filepath.Ext(w.name), ".xlsx") {
		return fmt.Errorf("report name must end with .xlsx: %q", w.name)
	}
	return nil
}

// Write renders summary and saves it, returning the path written. When the
// name is taken, _v1, _v2 and so on are appended before the extension.
// ErrEmptySummary is returned without touching the filesystem when there
// are no results.
func (w *Writer) Write(ctx context.Context, summary types.FleetSummary) (string, error) {
	f, err := Render(summary)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	out, path, err := claim(w.dir, w.name)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteTo(out); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close report %s: %w", path, err)
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"wrote report",
		slog.String("path", path),
		slog.Int("plants", len(summary.Results)),
	)
	return path, nil
}

// claim creates the first free name of the name, name_v1, name_v2... series.
// O_EXCL makes the check and the creation a single step so concurrent
// writers never share a file.
func claim(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for v := 0; v <= maxVersions; v++ {
		candidate := name
		if v > 0 {
			candidate = fmt.Sprintf("%s_v%d%s", base, v, ext)
		}
		path := filepath.Join(dir, candidate)
		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return out, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("failed to create report %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("no free report name for %s in %s after %d versions", name, dir, maxVersions)
}
