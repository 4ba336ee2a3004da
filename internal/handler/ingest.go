package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iamjameskeane/realpolitik-sub000/internal/dispatch"
	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
)

type IngestHandler struct {
	engine *dispatch.Engine
	logger *slog.Logger
}

func NewIngestHandler(engine *dispatch.Engine, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{engine: engine, logger: logger}
}

// Event handles POST /api/ingest/event: one scored event in, a dispatch
// summary out. The pipeline upstream retries on 5xx, so a storage outage
// surfaces as one rather than a silent zero result.
func (h *IngestHandler) Event(w http.ResponseWriter, r *http.Request) {
	var payload model.NotificationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if payload.ID == "" || payload.Title == "" {
		writeError(w, http.StatusBadRequest, "id and title are required")
		return
	}

	result, err := h.engine.Dispatch(r.Context(), payload)
	if err != nil {
		h.logger.Error("dispatch event", "event_id", payload.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
