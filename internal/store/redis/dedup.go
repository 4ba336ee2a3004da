package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

var _ store.DedupStore = (*Store)(nil)

func (s *Store) Seen(ctx context.Context, userID, eventID string) (bool, error) {
	var count int64
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.client.Exists(ctx, dedupKey(userID, eventID)).Result()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("check dedup ledger: %w", err)
	}
	return count > 0, nil
}

// Record writes with NX so a concurrent double-write keeps the earlier
// notified_at.
func (s *Store) Record(ctx context.Context, userID, eventID string, at time.Time) error {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.client.SetNX(ctx, dedupKey(userID, eventID), at.UTC().Format(time.RFC3339), 0).Err()
	})
	if err != nil {
		return fmt.Errorf("record dedup ledger: %w", err)
	}
	return nil
}
