package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

type InboxStore struct {
	db *sql.DB
}

var _ store.InboxStore = (*InboxStore)(nil)

func NewInboxStore(db *sql.DB) *InboxStore {
	return &InboxStore{db: db}
}

// Add upserts an inbox entry keyed by (user, event). A replay of the same
// event leaves the existing entry alone, which is what absorbs the dedup
// ledger's best-effort race.
func (s *InboxStore) Add(ctx context.Context, entry model.InboxEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inbox (user_id, event_id, title, body, url, severity, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, event_id) DO NOTHING`,
		entry.UserID, entry.EventID, entry.Title, entry.Body, entry.URL,
		entry.Severity, entry.Category, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("add inbox entry: %w", err)
	}
	return nil
}

func (s *InboxStore) List(ctx context.Context, userID string, limit int) ([]model.InboxEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, event_id, title, body, url, severity, category, created_at, read_at
		 FROM inbox WHERE user_id = ? ORDER BY created_at DESC, event_id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	defer rows.Close()

	var entries []model.InboxEntry
	for rows.Next() {
		var entry model.InboxEntry
		var readAt sql.NullTime
		if err := rows.Scan(&entry.UserID, &entry.EventID, &entry.Title, &entry.Body, &entry.URL,
			&entry.Severity, &entry.Category, &entry.CreatedAt, &readAt); err != nil {
			return nil, fmt.Errorf("scan inbox entry: %w", err)
		}
		if readAt.Valid {
			t := readAt.Time
			entry.ReadAt = &t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *InboxStore) MarkRead(ctx context.Context, userID, eventID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE inbox SET read_at = ? WHERE user_id = ? AND event_id = ? AND read_at IS NULL`,
		time.Now().UTC(), userID, eventID)
	if err != nil {
		return fmt.Errorf("mark inbox entry read: %w", err)
	}
	return nil
}
