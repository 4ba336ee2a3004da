package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

// The backend itself requires a live server; these tests cover the pure key
// derivation and value normalization, plus the SCAN enumeration loop driven
// against a scripted client.

func TestKeyLayout(t *testing.T) {
	ek := store.EndpointKey("https://push.example.com/1")
	if got, want := subKey(ek), "sub:"+ek; got != want {
		t.Errorf("subKey = %q, want %q", got, want)
	}
	if got, want := dedupKey("user-a", "evt-1"), "dedup:user-a:evt-1"; got != want {
		t.Errorf("dedupKey = %q, want %q", got, want)
	}
	if got, want := prefsKey("user-a"), "prefs:user-a"; got != want {
		t.Errorf("prefsKey = %q, want %q", got, want)
	}
	if got, want := inboxKey("user-a"), "inbox:user-a"; got != want {
		t.Errorf("inboxKey = %q, want %q", got, want)
	}
	if got, want := statsKey("2026-03-14"), "stats:2026-03-14"; got != want {
		t.Errorf("statsKey = %q, want %q", got, want)
	}
}

func TestDecodeSubscriptionShapes(t *testing.T) {
	s := New(nil, slog.Default())

	sub := model.Subscription{
		Endpoint: "https://push.example.com/1",
		Keys:     model.SubscriptionKeys{P256dh: "p", Auth: "a"},
		UserID:   "user-a",
	}
	structured, _ := json.Marshal(sub)
	// A caching layer that re-serializes the record as a string.
	doubled, _ := json.Marshal(string(structured))

	for _, tc := range []struct {
		name  string
		value any
	}{
		{"structured string", string(structured)},
		{"structured bytes", structured},
		{"double-encoded", string(doubled)},
	} {
		got, ok := s.decodeSubscription(tc.value)
		if !ok {
			t.Errorf("%s: decode failed", tc.name)
			continue
		}
		if got.Endpoint != sub.Endpoint || got.UserID != "user-a" {
			t.Errorf("%s: decoded = %+v", tc.name, got)
		}
		if got.EndpointKey != store.EndpointKey(sub.Endpoint) {
			t.Errorf("%s: endpoint key not backfilled", tc.name)
		}
	}
}

func encodedSub(t *testing.T, endpoint, userID string) string {
	t.Helper()
	raw, err := json.Marshal(model.Subscription{
		Endpoint: endpoint,
		Keys:     model.SubscriptionKeys{P256dh: "p", Auth: "a"},
		UserID:   userID,
	})
	if err != nil {
		t.Fatalf("encode subscription: %v", err)
	}
	return string(raw)
}

func TestListActiveDeduplicatesScanKeys(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := New(client, slog.Default())

	rawA := encodedSub(t, "https://push.example.com/a", "user-a")
	rawB := encodedSub(t, "https://push.example.com/b", "user-b")
	rawC := encodedSub(t, "https://push.example.com/c", "user-c")

	// SCAN repeats sub:b across cursor rounds; only the unseen key may be
	// fetched on the second pass.
	mock.ExpectScan(0, "sub:*", scanCount).SetVal([]string{"sub:a", "sub:b"}, 7)
	mock.ExpectMGet("sub:a", "sub:b").SetVal([]any{rawA, rawB})
	mock.ExpectScan(7, "sub:*", scanCount).SetVal([]string{"sub:b", "sub:c"}, 0)
	mock.ExpectMGet("sub:c").SetVal([]any{rawC})

	subs, err := s.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("len = %d, want 3 despite the repeated key", len(subs))
	}
	seen := make(map[string]struct{})
	for _, sub := range subs {
		if _, dup := seen[sub.Endpoint]; dup {
			t.Fatalf("endpoint %s returned twice", sub.Endpoint)
		}
		seen[sub.Endpoint] = struct{}{}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListActiveScanRoundCap(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := New(client, slog.Default())

	// A cursor that never returns to zero must trip the circuit breaker
	// instead of spinning forever.
	mock.ExpectScan(0, "sub:*", scanCount).SetVal([]string{}, 1)
	for i := 1; i < store.MaxListRounds; i++ {
		mock.ExpectScan(1, "sub:*", scanCount).SetVal([]string{}, 1)
	}

	if _, err := s.ListActive(context.Background()); err == nil {
		t.Fatal("expected scan round cap error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTouchRewritesStoredTimestamp(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := New(client, slog.Default())

	endpoint := "https://push.example.com/1"
	key := subKey(store.EndpointKey(endpoint))
	old := time.Now().UTC().Add(-30 * 24 * time.Hour)
	raw, _ := json.Marshal(model.Subscription{
		Endpoint:   endpoint,
		Keys:       model.SubscriptionKeys{P256dh: "p", Auth: "a"},
		UserID:     "user-a",
		CreatedAt:  old,
		LastUsedAt: old,
	})

	var written []byte
	mock.ExpectGet(key).SetVal(string(raw))
	mock.CustomMatch(func(expected, actual []any) error {
		if len(actual) >= 3 {
			switch v := actual[2].(type) {
			case string:
				written = []byte(v)
			case []byte:
				written = v
			}
		}
		return nil
	}).ExpectSet(key, "", store.SubscriptionTTL).SetVal("OK")

	if err := s.Touch(context.Background(), endpoint); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	var updated model.Subscription
	if err := store.DecodeJSON(written, &updated); err != nil {
		t.Fatalf("decode rewritten record: %v", err)
	}
	if !updated.LastUsedAt.After(old) {
		t.Errorf("last_used_at = %v, want refreshed past %v", updated.LastUsedAt, old)
	}
	if updated.Endpoint != endpoint || updated.UserID != "user-a" {
		t.Errorf("rewritten record = %+v, rest of the record must survive", updated)
	}
}

func TestTouchMissingKeyIsNoop(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := New(client, slog.Default())

	endpoint := "https://push.example.com/gone"
	mock.ExpectGet(subKey(store.EndpointKey(endpoint))).RedisNil()

	if err := s.Touch(context.Background(), endpoint); err != nil {
		t.Fatalf("Touch() on missing key error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDecodeSubscriptionRejectsGarbage(t *testing.T) {
	s := New(nil, slog.Default())

	for _, tc := range []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"not json", "not json"},
		{"empty record", "{}"},
		{"wrong type", 42},
	} {
		if _, ok := s.decodeSubscription(tc.value); ok {
			t.Errorf("%s: expected decode to fail", tc.name)
		}
	}
}
