package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iamjameskeane/realpolitik-sub000/internal/auth"
	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/push"
	"github.com/iamjameskeane/realpolitik-sub000/internal/rules"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

type PushHandler struct {
	subs    store.SubscriptionStore
	prefs   store.PreferenceStore
	service *push.Service
	logger  *slog.Logger
}

func NewPushHandler(subs store.SubscriptionStore, prefs store.PreferenceStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{subs: subs, prefs: prefs, service: svc, logger: logger}
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	UserAgent string `json:"user_agent"`
}

// Subscribe handles POST /api/push/subscribe. Resubscribing with the same
// endpoint upserts and refreshes the retention window.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint and keys are required")
		return
	}

	now := time.Now().UTC()
	sub := model.Subscription{
		EndpointKey: store.EndpointKey(req.Endpoint),
		Endpoint:    req.Endpoint,
		Keys:        model.SubscriptionKeys{P256dh: req.Keys.P256dh, Auth: req.Keys.Auth},
		UserID:      userID,
		UserAgent:   req.UserAgent,
		CreatedAt:   now,
		LastUsedAt:  now,
	}
	if err := h.subs.Save(r.Context(), sub); err != nil {
		h.logger.Error("save subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"endpoint_key": sub.EndpointKey})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe handles POST /api/push/unsubscribe. Removing an unknown
// endpoint is not an error.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	removed, err := h.subs.Remove(r.Context(), req.Endpoint)
	if err != nil {
		h.logger.Error("remove subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove subscription")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// GetPreferences handles GET /api/push/preferences. Unknown users get the
// zero value: disabled, no rules.
func (h *PushHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	prefs, err := h.prefs.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("get preferences", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/push/preferences. The whole document is
// replaced; rules arriving without IDs get one assigned.
func (h *PushHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var prefs model.NotificationPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validatePreferences(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.prefs.Set(r.Context(), userID, prefs); err != nil {
		h.logger.Error("set preferences", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func validatePreferences(prefs *model.NotificationPreferences) error {
	if prefs.Timezone != "" {
		if _, err := time.LoadLocation(prefs.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q", prefs.Timezone)
		}
	}
	qh := prefs.QuietHours
	if qh.StartHour < 0 || qh.StartHour > 23 || qh.EndHour < 0 || qh.EndHour > 23 {
		return fmt.Errorf("quiet hours must be within 0-23")
	}
	for i := range prefs.Rules {
		rule := &prefs.Rules[i]
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		for _, cond := range rule.Conditions {
			if !rules.ValidField(cond.Field) {
				return fmt.Errorf("unknown condition field %q", cond.Field)
			}
			if !rules.ValidOperator(cond.Operator) {
				return fmt.Errorf("unknown condition operator %q", cond.Operator)
			}
		}
	}
	return nil
}
