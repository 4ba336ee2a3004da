// Package store defines the backend-agnostic persistence contracts consumed
// by the dispatch engine and HTTP handlers. Two interchangeable backends
// implement them: a relational one (store/sqlite) and a key-value one
// (store/redis). Picking one is a composition-time decision in main; nothing
// downstream branches on it.
package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
)

// SubscriptionTTL is how long a subscription stays active without a write.
// Refreshed on every resubscribe; optionally on send (see Touch).
const SubscriptionTTL = 90 * 24 * time.Hour

// MaxListRounds caps pagination rounds during enumeration. A backend whose
// cursor never terminates otherwise turns ListActive into unbounded work.
const MaxListRounds = 100

// EndpointKey returns the stable one-way hash identifying a subscription.
func EndpointKey(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:])
}

// SubscriptionStore persists registered push endpoints.
type SubscriptionStore interface {
	// Save upserts by endpoint key and refreshes the TTL.
	Save(ctx context.Context, sub model.Subscription) error
	// Remove deletes by endpoint and reports whether a record existed.
	Remove(ctx context.Context, endpoint string) (bool, error)
	// ListActive enumerates unexpired subscriptions. Implementations must
	// deduplicate keys repeated across pagination cursors and bail out after
	// MaxListRounds.
	ListActive(ctx context.Context) ([]model.Subscription, error)
	// Touch refreshes LastUsedAt. Callers gate this behind the
	// refresh-on-send flag; it costs a read and a write per delivery.
	Touch(ctx context.Context, endpoint string) error
}

// PreferenceStore persists per-user notification preferences. Get returns
// zero-value preferences (disabled, no rules) for unknown users.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (model.NotificationPreferences, error)
	Set(ctx context.Context, userID string, prefs model.NotificationPreferences) error
}

// DedupStore is the ledger of (user, event) pairs already surfaced. The
// check-then-write usage in dispatch is deliberately best-effort; backends
// only need keyed idempotent writes, not transactions.
type DedupStore interface {
	Seen(ctx context.Context, userID, eventID string) (bool, error)
	Record(ctx context.Context, userID, eventID string, at time.Time) error
}

// InboxStore is the durable per-user inbox. Add is an idempotent upsert
// keyed by (user, event), which is what absorbs dedup races.
type InboxStore interface {
	Add(ctx context.Context, entry model.InboxEntry) error
	List(ctx context.Context, userID string, limit int) ([]model.InboxEntry, error)
	MarkRead(ctx context.Context, userID, eventID string) error
}

// StatsStore accumulates per-day dispatch counters via atomic increments.
type StatsStore interface {
	IncrDispatch(ctx context.Context, day string, success, failed, removed int) error
}

// DecodeJSON unmarshals a stored value into v, tolerating values that come
// back as a JSON-encoded string of JSON. Some caching layers re-serialize
// already-serialized records; the normalization belongs here at the boundary
// so the extra shape never leaks upward.
func DecodeJSON(raw []byte, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err == nil {
			trimmed = []byte(inner)
		}
	}
	return json.Unmarshal(trimmed, v)
}
