package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hannsv/PillGood/internal/database"
	"github.com/hannsv/PillGood/internal/models"
	"github.com/jackc/pgx/v5"
)

type HistoryRepository struct {
	db *database.DB
}

func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// InsertHistory ignores the row when the schedule already has one for takenOn
func (r *HistoryRepository) InsertHistory(ctx context.Context, h *models.History, takenOn string) (bool, error) {
	day, err := time.Parse("2006-01-02", takenOn)
	if err != nil {
		return false, fmt.Errorf("invalid taken_on %q: %w", takenOn, err)
	}

	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO history (schedule_id, taken_at, taken_on, is_skipped) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (schedule_id, taken_on) DO NOTHING
		 RETURNING history_id`,
		h.ScheduleID, h.TakenAt, day, h.IsSkipped,
	).Scan(&h.HistoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const historyEntryColumns = `h.history_id, h.schedule_id, s.group_id, g.title, s.slot, h.taken_at, h.is_skipped
	FROM history h
	JOIN schedules s ON s.schedule_id = h.schedule_id
	JOIN pill_groups g ON g.group_id = s.group_id`

func (r *HistoryRepository) ListHistorySince(ctx context.Context, since time.Time) ([]models.HistoryEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+historyEntryColumns+` WHERE h.taken_at >= $1 ORDER BY h.taken_at ASC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	return collectHistory(rows)
}

// ListHistory returns the newest entries first
func (r *HistoryRepository) ListHistory(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+historyEntryColumns+` ORDER BY h.taken_at DESC, h.history_id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return collectHistory(rows)
}

func collectHistory(rows pgx.Rows) ([]models.HistoryEntry, error) {
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var slot string
		if err := rows.Scan(&e.HistoryID, &e.ScheduleID, &e.GroupID, &e.GroupTitle, &slot, &e.TakenAt, &e.IsSkipped); err != nil {
			return nil, err
		}
		e.Slot = models.Slot(slot)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
