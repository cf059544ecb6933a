package repository

import (
	"context"
	"errors"

	"github.com/hannsv/PillGood/internal/database"
	"github.com/hannsv/PillGood/internal/models"
	"github.com/jackc/pgx/v5"
)

type ScheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) FindSchedule(ctx context.Context, groupID int64, slot models.Slot) (*models.Schedule, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT schedule_id, group_id, slot, time, days, is_active
		 FROM schedules WHERE group_id = $1 AND slot = $2`,
		groupID, string(slot),
	)
	s, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return s, err
}

// UpdateScheduleActive toggles every schedule of the group
func (r *ScheduleRepository) UpdateScheduleActive(ctx context.Context, groupID int64, active bool) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE schedules SET is_active = $1 WHERE group_id = $2`,
		active, groupID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateScheduleTime sets or clears (nil) the HH:MM override of one schedule
func (r *ScheduleRepository) UpdateScheduleTime(ctx context.Context, groupID int64, slot models.Slot, hhmm *string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE schedules SET time = $1 WHERE group_id = $2 AND slot = $3`,
		hhmm, groupID, string(slot),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
