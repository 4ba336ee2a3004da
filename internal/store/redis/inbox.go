package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

var _ store.InboxStore = (*Store)(nil)

// Add writes the entry as an inbox hash field keyed by event ID, with NX
// semantics so a replayed event leaves the original entry untouched.
func (s *Store) Add(ctx context.Context, entry model.InboxEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode inbox entry: %w", err)
	}
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.client.HSetNX(ctx, inboxKey(entry.UserID), entry.EventID, data).Err()
	})
	if err != nil {
		return fmt.Errorf("add inbox entry: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, userID string, limit int) ([]model.InboxEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var fields map[string]string
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		fields, err = s.client.HGetAll(ctx, inboxKey(userID)).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}

	entries := make([]model.InboxEntry, 0, len(fields))
	for eventID, raw := range fields {
		var entry model.InboxEntry
		if err := store.DecodeJSON([]byte(raw), &entry); err != nil {
			s.logger.Warn("skipping undecodable inbox entry", "user_id", userID, "event_id", eventID)
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].EventID > entries[j].EventID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) MarkRead(ctx context.Context, userID, eventID string) error {
	var raw string
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		raw, err = s.client.HGet(ctx, inboxKey(userID), eventID).Result()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read inbox entry: %w", err)
	}

	var entry model.InboxEntry
	if err := store.DecodeJSON([]byte(raw), &entry); err != nil {
		return fmt.Errorf("decode inbox entry: %w", err)
	}
	if entry.ReadAt != nil {
		return nil
	}
	now := time.Now().UTC()
	entry.ReadAt = &now

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode inbox entry: %w", err)
	}
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.client.HSet(ctx, inboxKey(userID), eventID, data).Err()
	})
	if err != nil {
		return fmt.Errorf("mark inbox entry read: %w", err)
	}
	return nil
}
