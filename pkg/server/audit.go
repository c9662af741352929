package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/fleet"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

type auditRequest struct {
	Month types.Month `json:"month"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req auditRequest
	// Limit body size to 1MB to prevent DoS
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Ctx(ctx).WarnContext(ctx, "invalid audit request", slog.Any("error", err))
		writeJSONError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	run, err := s.auditor.Audit(ctx, req.Month)
	if err != nil {
		if errors.Is(err, fleet.ErrNoMonth) {
			writeJSONError(w, "month is required", http.StatusBadRequest)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "audit failed", slog.Any("error", err))
		writeJSONError(w, "audit failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, run)
}
