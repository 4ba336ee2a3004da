package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

var _ store.PreferenceStore = (*Store)(nil)

// Get returns zero-value preferences for users with no stored record.
func (s *Store) Get(ctx context.Context, userID string) (model.NotificationPreferences, error) {
	var raw string
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		raw, err = s.client.Get(ctx, prefsKey(userID)).Result()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return model.NotificationPreferences{}, nil
	}
	if err != nil {
		return model.NotificationPreferences{}, fmt.Errorf("get preferences: %w", err)
	}

	var prefs model.NotificationPreferences
	if err := store.DecodeJSON([]byte(raw), &prefs); err != nil {
		return model.NotificationPreferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}

func (s *Store) Set(ctx context.Context, userID string, prefs model.NotificationPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.client.Set(ctx, prefsKey(userID), data, 0).Err()
	})
	if err != nil {
		return fmt.Errorf("set preferences: %w", err)
	}
	return nil
}
