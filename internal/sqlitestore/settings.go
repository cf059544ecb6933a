package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
)

// GetSetting retrieves a setting value by key, def when it has never been set
func (db *DB) GetSetting(ctx context.Context, key, def string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, "SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting sets a setting value
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
