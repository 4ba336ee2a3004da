package redis

import (
	"context"
	"fmt"

	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

var _ store.StatsStore = (*Store)(nil)

// IncrDispatch bumps the day's counters with HINCRBY, which is atomic on the
// server, so concurrent dispatch calls never clobber each other.
func (s *Store) IncrDispatch(ctx context.Context, day string, success, failed, removed int) error {
	key := statsKey(day)
	err := s.withRetry(ctx, func(ctx context.Context) error {
		pipe := s.client.Pipeline()
		if success != 0 {
			pipe.HIncrBy(ctx, key, "success", int64(success))
		}
		if failed != 0 {
			pipe.HIncrBy(ctx, key, "failed", int64(failed))
		}
		if removed != 0 {
			pipe.HIncrBy(ctx, key, "removed", int64(removed))
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("increment dispatch stats: %w", err)
	}
	return nil
}
