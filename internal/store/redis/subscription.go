package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

// scanCount is the COUNT hint per SCAN round.
const scanCount = 200

var _ store.SubscriptionStore = (*Store)(nil)

// Save upserts the subscription record and resets its expiry, so every
// resubscribe pushes the TTL out another 90 days.
func (s *Store) Save(ctx context.Context, sub model.Subscription) error {
	if sub.EndpointKey == "" {
		sub.EndpointKey = store.EndpointKey(sub.Endpoint)
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.LastUsedAt = now

	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.client.Set(ctx, subKey(sub.EndpointKey), data, store.SubscriptionTTL).Err()
	})
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, endpoint string) (bool, error) {
	var deleted int64
	err := s.withRetry(ctx, func(ctx context.Context) error {
		n, err := s.client.Del(ctx, subKey(store.EndpointKey(endpoint))).Result()
		deleted = n
		return err
	})
	if err != nil {
		return false, fmt.Errorf("remove subscription: %w", err)
	}
	return deleted > 0, nil
}

// ListActive walks sub:* with SCAN. SCAN may repeat keys across cursor
// rounds, so keys are deduplicated, and the number of rounds is capped in
// case a misbehaving server never returns cursor 0. Records that fail to
// decode are logged and skipped rather than failing the whole enumeration.
func (s *Store) ListActive(ctx context.Context) ([]model.Subscription, error) {
	seen := make(map[string]struct{})
	var subs []model.Subscription
	var cursor uint64

	for round := 0; round < store.MaxListRounds; round++ {
		var keys []string
		err := s.withRetry(ctx, func(ctx context.Context) error {
			var err error
			keys, cursor, err = s.client.Scan(ctx, cursor, subKeyPrefix+"*", scanCount).Result()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("scan subscriptions: %w", err)
		}

		fresh := keys[:0]
		for _, key := range keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			fresh = append(fresh, key)
		}

		if len(fresh) > 0 {
			var values []any
			err = s.withRetry(ctx, func(ctx context.Context) error {
				var err error
				values, err = s.client.MGet(ctx, fresh...).Result()
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("load subscriptions: %w", err)
			}
			for i, value := range values {
				sub, ok := s.decodeSubscription(value)
				if !ok {
					s.logger.Warn("skipping undecodable subscription", "key", fresh[i])
					continue
				}
				subs = append(subs, sub)
			}
		}

		if cursor == 0 {
			return subs, nil
		}
	}
	return nil, fmt.Errorf("scan subscriptions: exceeded %d rounds", store.MaxListRounds)
}

// decodeSubscription normalizes whatever shape the value came back in:
// raw JSON bytes, a JSON string, or a doubly-encoded JSON string.
func (s *Store) decodeSubscription(value any) (model.Subscription, bool) {
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return model.Subscription{}, false
	}

	var sub model.Subscription
	if err := store.DecodeJSON(raw, &sub); err != nil {
		return model.Subscription{}, false
	}
	if sub.Endpoint == "" {
		return model.Subscription{}, false
	}
	if sub.EndpointKey == "" {
		sub.EndpointKey = store.EndpointKey(sub.Endpoint)
	}
	return sub, true
}

// Touch refreshes last_used_at inside the record and resets the key expiry
// with it, so the stored timestamp never diverges from the effective TTL.
// Touching an endpoint that is no longer stored is a no-op.
func (s *Store) Touch(ctx context.Context, endpoint string) error {
	key := subKey(store.EndpointKey(endpoint))

	var raw string
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		raw, err = s.client.Get(ctx, key).Result()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("touch subscription: %w", err)
	}

	sub, ok := s.decodeSubscription(raw)
	if !ok {
		return fmt.Errorf("touch subscription: undecodable record at %s", key)
	}
	sub.LastUsedAt = time.Now().UTC()

	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.client.Set(ctx, key, data, store.SubscriptionTTL).Err()
	})
	if err != nil {
		return fmt.Errorf("touch subscription: %w", err)
	}
	return nil
}
