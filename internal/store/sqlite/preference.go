package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

type PreferenceStore struct {
	db *sql.DB
}

var _ store.PreferenceStore = (*PreferenceStore)(nil)

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// Get returns the stored preferences, or zero-value preferences (disabled,
// no rules) for a user with no record.
func (s *PreferenceStore) Get(ctx context.Context, userID string) (model.NotificationPreferences, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT prefs FROM preferences WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *PreferenceStore) Set(ctx context.Context, userID string, prefs model.NotificationPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO preferences (user_id, prefs, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET prefs = excluded.prefs, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set preferences: %w", err)
	}
	return nil
}
