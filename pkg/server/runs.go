package server

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/report"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/storage"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var month types.Month
	if v := r.URL.Query().Get("month"); v != "" {
		var err error
		month, err = types.ParseMonth(v)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	runs, err := s.storage.ListRuns(ctx, month)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list runs", slog.String("month", month.String()), slog.Any("error", err))
		writeJSONError(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []types.FleetRun{}
	}
	writeJSON(w, runs)
}

// getRun loads the run named by the path or writes the error response.
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) (types.FleetRun, bool) {
	ctx := r.Context()
	id := r.PathValue("id")
	run, err := s.storage.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			writeJSONError(w, "run not found", http.StatusNotFound)
			return types.FleetRun{}, false
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to get run", slog.String("runID", id), slog.Any("error", err))
		writeJSONError(w, "failed to get run", http.StatusInternalServerError)
		return types.FleetRun{}, false
	}
	return run, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.getRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, run)
}

func (s *Server) handleGetRunReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	run, ok := s.getRun(w, r)
	if !ok {
		return
	}
	if run.Empty() {
		writeJSONError(w, "run has no results to report", http.StatusNotFound)
		return
	}

	// render fully before writing so a failure can still produce a 500
	var buf bytes.Buffer
	if err := report.WriteTo(&buf, run.FleetSummary); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to render report", slog.String("runID", run.ID), slog.Any("error", err))
		writeJSONError(w, "failed to render report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFileName(run)))
	if _, err := buf.WriteTo(w); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func reportFileName(run types.FleetRun) string {
	return fmt.Sprintf("SOLAR_PERFORMANCE_REPORT_%s.xlsx", run.Month)
}
