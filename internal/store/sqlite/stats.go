package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

type StatsStore struct {
	db *sql.DB
}

var _ store.StatsStore = (*StatsStore)(nil)

func NewStatsStore(db *sql.DB) *StatsStore {
	return &StatsStore{db: db}
}

// IncrDispatch adds to the day's counters in a single statement, so
// concurrent dispatch calls never lose increments to a read-modify-write.
func (s *StatsStore) IncrDispatch(ctx context.Context, day string, success, failed, removed int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatch_stats (day, success, failed, removed) VALUES (?, ?, ?, ?)
		 ON CONFLICT(day) DO UPDATE SET
		   success = success + excluded.success,
		   failed = failed + excluded.failed,
		   removed = removed + excluded.removed`,
		day, success, failed, removed)
	if err != nil {
		return fmt.Errorf("increment dispatch stats: %w", err)
	}
	return nil
}

// Dispatch returns the counters recorded for a day, zeros when absent.
func (s *StatsStore) Dispatch(ctx context.Context, day string) (success, failed, removed int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT success, failed, removed FROM dispatch_stats WHERE day = ?`, day).
		Scan(&success, &failed, &removed)
	if err == sql.ErrNoRows {
		return 0, 0, 0, nil
	}
	if err != nil {
		return 0, 0, 0, fmt.Errorf("get dispatch stats: %w", err)
	}
	return success, failed, removed, nil
}
