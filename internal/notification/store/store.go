// Package store persists per-user notification preferences. Reads always
// return a fully populated matrix; a user with no row gets the defaults.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"shiftguard/internal/notification/models"
	id "shiftguard/pkg/domain"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	prefs map[id.UserID]models.Preferences
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{prefs: make(map[id.UserID]models.Preferences)}
}

func (s *InMemoryStore) GetPreferences(_ context.Context, userID id.UserID) (models.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Merge(s.prefs[userID]), nil
}

func (s *InMemoryStore) SetPreferences(_ context.Context, userID id.UserID, prefs models.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[userID] = models.Merge(prefs)
	return nil
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetPreferences(ctx context.Context, userID id.UserID) (models.Preferences, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT preferences FROM notification_preferences WHERE user_id = $1`, uuid.UUID(userID),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultPreferences(), nil
		}
		return nil, fmt.Errorf("get notification preferences: %w", err)
	}
	return models.ParsePreferences(raw), nil
}

func (s *PostgresStore) SetPreferences(ctx context.Context, userID id.UserID, prefs models.Preferences) error {
	raw, err := json.Marshal(models.Merge(prefs))
	if err != nil {
		return fmt.Errorf("encode notification preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (user_id, preferences, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET preferences = EXCLUDED.preferences, updated_at = NOW()
	`, uuid.UUID(userID), raw)
	if err != nil {
		return fmt.Errorf("set notification preferences: %w", err)
	}
	return nil
}
