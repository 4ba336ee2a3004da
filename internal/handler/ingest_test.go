package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/database"
	"github.com/iamjameskeane/realpolitik-sub000/internal/dispatch"
	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/push"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store/sqlite"
)

// dropSender accepts every send without delivering anything.
type dropSender struct{}

func (dropSender) Send(context.Context, *model.Subscription, model.NotificationPayload, push.Urgency) error {
	return nil
}

func setupIngestHandler(t *testing.T) (*IngestHandler, *sqlite.SubscriptionStore, *sqlite.PreferenceStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	subs := sqlite.NewSubscriptionStore(db)
	prefs := sqlite.NewPreferenceStore(db)
	engine := dispatch.New(subs, prefs, sqlite.NewDedupStore(db), sqlite.NewInboxStore(db),
		sqlite.NewStatsStore(db), dropSender{}, dispatch.Config{}, logger)
	return NewIngestHandler(engine, logger), subs, prefs
}

func TestIngestEvent(t *testing.T) {
	h, subs, prefs := setupIngestHandler(t)

	now := time.Now().UTC()
	subs.Save(context.Background(), model.Subscription{
		EndpointKey: store.EndpointKey("https://push.example/ep1"),
		Endpoint:    "https://push.example/ep1",
		Keys:        model.SubscriptionKeys{P256dh: "pk", Auth: "ak"},
		UserID:      "alice",
		CreatedAt:   now,
		LastUsedAt:  now,
	})
	prefs.Set(context.Background(), "alice", model.NotificationPreferences{
		Enabled: true,
		Rules: []model.Rule{{
			ID: "r1", Enabled: true, SendPush: true,
			Conditions: []model.Condition{{Field: model.FieldSeverity, Operator: model.OpGTE, Value: 5}},
		}},
	})

	body := `{"id":"evt-1","title":"Carrier group repositioned","severity":8,"category":"MILITARY"}`
	req := httptest.NewRequest("POST", "/api/ingest/event", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Event(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var result dispatch.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Success != 1 {
		t.Errorf("success = %d, want 1", result.Success)
	}
}

func TestIngestEventRejectsIncomplete(t *testing.T) {
	h, _, _ := setupIngestHandler(t)

	for _, body := range []string{
		`{"title":"no id","severity":5}`,
		`{"id":"evt-1","severity":5}`,
		`broken`,
	} {
		req := httptest.NewRequest("POST", "/api/ingest/event", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Event(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}
