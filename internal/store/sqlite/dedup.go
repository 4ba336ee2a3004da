package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

type DedupStore struct {
	db *sql.DB
}

var _ store.DedupStore = (*DedupStore)(nil)

func NewDedupStore(db *sql.DB) *DedupStore {
	return &DedupStore{db: db}
}

func (s *DedupStore) Seen(ctx context.Context, userID, eventID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dedup_ledger WHERE user_id = ? AND event_id = ?`,
		userID, eventID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check dedup ledger: %w", err)
	}
	return count > 0, nil
}

// Record is idempotent: a pair already in the ledger is left untouched, so
// a concurrent double-write keeps the earlier notified_at.
func (s *DedupStore) Record(ctx context.Context, userID, eventID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO dedup_ledger (user_id, event_id, notified_at) VALUES (?, ?, ?)`,
		userID, eventID, at.UTC())
	if err != nil {
		return fmt.Errorf("record dedup ledger: %w", err)
	}
	return nil
}
