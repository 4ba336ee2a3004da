// Package sqlite is the relational storage backend, a thin layer of
// database/sql over the schema in internal/database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

// listPageSize bounds one pagination round during ListActive.
const listPageSize = 200

type SubscriptionStore struct {
	db *sql.DB
}

var _ store.SubscriptionStore = (*SubscriptionStore)(nil)

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Save upserts by endpoint key, refreshing last_used_at (and therefore the
// TTL) on every write.
func (s *SubscriptionStore) Save(ctx context.Context, sub model.Subscription) error {
	if sub.EndpointKey == "" {
		sub.EndpointKey = store.EndpointKey(sub.Endpoint)
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (endpoint_key, endpoint, p256dh_key, auth_key, user_id, user_agent, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint_key) DO UPDATE SET
		   p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key,
		   user_id = excluded.user_id,
		   user_agent = excluded.user_agent,
		   last_used_at = excluded.last_used_at`,
		sub.EndpointKey, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth,
		sub.UserID, sub.UserAgent, sub.CreatedAt, now,
	)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// Remove deletes by hashed endpoint key and reports whether a record existed.
func (s *SubscriptionStore) Remove(ctx context.Context, endpoint string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE endpoint_key = ?`, store.EndpointKey(endpoint))
	if err != nil {
		return false, fmt.Errorf("remove subscription: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove subscription: rows affected: %w", err)
	}
	return n > 0, nil
}

// ListActive enumerates subscriptions written within the TTL, paging by
// endpoint key. Keys repeated across rounds are dropped and the round count
// is capped, matching the contract the key-value backend has to honor for
// its scan cursor.
func (s *SubscriptionStore) ListActive(ctx context.Context) ([]model.Subscription, error) {
	cutoff := time.Now().UTC().Add(-store.SubscriptionTTL)
	seen := make(map[string]struct{})
	var subs []model.Subscription
	lastKey := ""

	for round := 0; round < store.MaxListRounds; round++ {
		rows, err := s.db.QueryContext(ctx,
			`SELECT endpoint_key, endpoint, p256dh_key, auth_key, user_id, user_agent, created_at, last_used_at
			 FROM subscriptions
			 WHERE endpoint_key > ? AND last_used_at >= ?
			 ORDER BY endpoint_key
			 LIMIT ?`,
			lastKey, cutoff, listPageSize,
		)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}

		count := 0
		for rows.Next() {
			var sub model.Subscription
			if err := rows.Scan(&sub.EndpointKey, &sub.Endpoint, &sub.Keys.P256dh, &sub.Keys.Auth,
				&sub.UserID, &sub.UserAgent, &sub.CreatedAt, &sub.LastUsedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan subscription: %w", err)
			}
			count++
			lastKey = sub.EndpointKey
			if _, dup := seen[sub.EndpointKey]; dup {
				continue
			}
			seen[sub.EndpointKey] = struct{}{}
			subs = append(subs, sub)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		rows.Close()

		if count < listPageSize {
			return subs, nil
		}
	}
	return nil, fmt.Errorf("list subscriptions: exceeded %d pagination rounds", store.MaxListRounds)
}

// Touch refreshes last_used_at for an endpoint.
func (s *SubscriptionStore) Touch(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET last_used_at = ? WHERE endpoint_key = ?`,
		time.Now().UTC(), store.EndpointKey(endpoint))
	if err != nil {
		return fmt.Errorf("touch subscription: %w", err)
	}
	return nil
}

// PruneExpired deletes subscriptions past the TTL. The key-value backend
// gets this for free from native expiry; here it runs as a cleanup task.
func (s *SubscriptionStore) PruneExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE last_used_at < ?`,
		time.Now().UTC().Add(-store.SubscriptionTTL))
	if err != nil {
		return 0, fmt.Errorf("prune subscriptions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune subscriptions: rows affected: %w", err)
	}
	return n, nil
}
