package repository

import (
	"context"
	"errors"

	"github.com/hannsv/PillGood/internal/database"
	"github.com/jackc/pgx/v5"
)

type SettingRepository struct {
	db *database.DB
}

func NewSettingRepository(db *database.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// GetSetting returns def when the key has never been set
func (r *SettingRepository) GetSetting(ctx context.Context, key, def string) (string, error) {
	var value string
	err := r.db.Pool.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SettingRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO app_settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	return err
}
