package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetPref returns the stored value for key. ok is false when the key is unset.
func (s *Store) GetPref(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query preference %q: %w", key, err)
	}
	return value, true, nil
}

const upsertPref = `
	INSERT INTO preferences (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`

// SetPref stores value under key, replacing any previous value.
func (s *Store) SetPref(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertPref, key, value); err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

// SetPrefs stores every pair in one transaction. Either all values are
// written or none are.
func (s *Store) SetPrefs(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin preferences: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range values {
		if _, err := tx.ExecContext(ctx, upsertPref, key, value); err != nil {
			return fmt.Errorf("set preference %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit preferences: %w", err)
	}
	return nil
}
