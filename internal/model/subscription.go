package model

import "time"

// SubscriptionKeys are the client-side encryption keys from the browser's
// PushSubscription.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is a registered push endpoint for one device. EndpointKey is
// a stable one-way hash of Endpoint and is the record's identity; it is never
// re-derived from anything else.
type Subscription struct {
	EndpointKey string           `json:"endpoint_key"`
	Endpoint    string           `json:"endpoint"`
	Keys        SubscriptionKeys `json:"keys"`
	UserID      string           `json:"user_id"`
	UserAgent   string           `json:"user_agent,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	LastUsedAt  time.Time        `json:"last_used_at"`
}

// DedupRecord marks a (user, event) pair as already surfaced.
type DedupRecord struct {
	UserID     string    `json:"user_id"`
	EventID    string    `json:"event_id"`
	NotifiedAt time.Time `json:"notified_at"`
}

// InboxEntry is a durable per-user alert, written once per (user, event)
// regardless of whether a push went out.
type InboxEntry struct {
	UserID    string     `json:"user_id"`
	EventID   string     `json:"event_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	URL       string     `json:"url,omitempty"`
	Severity  int        `json:"severity"`
	Category  string     `json:"category"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
