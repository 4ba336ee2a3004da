package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iamjameskeane/realpolitik-sub000/internal/auth"
	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

const defaultInboxLimit = 50

type InboxHandler struct {
	inbox  store.InboxStore
	logger *slog.Logger
}

func NewInboxHandler(inbox store.InboxStore, logger *slog.Logger) *InboxHandler {
	return &InboxHandler{inbox: inbox, logger: logger}
}

// List handles GET /api/inbox?limit=n, newest first.
func (h *InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	limit := defaultInboxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be 1-500")
			return
		}
		limit = n
	}

	entries, err := h.inbox.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list inbox", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list inbox")
		return
	}
	if entries == nil {
		entries = []model.InboxEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// MarkRead handles POST /api/inbox/{event_id}/read. Idempotent: re-marking
// keeps the original read time.
func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	eventID := r.PathValue("event_id")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "event_id is required")
		return
	}

	if err := h.inbox.MarkRead(r.Context(), userID, eventID); err != nil {
		h.logger.Error("mark inbox read", "user_id", userID, "event_id", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
