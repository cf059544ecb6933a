package sqlitestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/hannsv/PillGood/internal/models"
)

// InsertHistory ignores the row when the schedule already has one for takenOn
func (db *DB) InsertHistory(ctx context.Context, h *models.History, takenOn string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO history (schedule_id, taken_at, taken_on, is_skipped) VALUES (?, ?, ?, ?)`,
		h.ScheduleID, h.TakenAt.UTC(), takenOn, h.IsSkipped,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if h.HistoryID, err = result.LastInsertId(); err != nil {
		return false, err
	}
	return true, nil
}

const historyEntryColumns = `h.history_id, h.schedule_id, s.group_id, g.title, s.slot, h.taken_at, h.is_skipped
	FROM history h
	JOIN schedules s ON s.schedule_id = h.schedule_id
	JOIN pill_groups g ON g.group_id = s.group_id`

func (db *DB) ListHistorySince(ctx context.Context, since time.Time) ([]models.HistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+historyEntryColumns+` WHERE h.taken_at >= ? ORDER BY h.taken_at ASC`,
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	return collectHistory(rows)
}

// ListHistory returns the newest entries first
func (db *DB) ListHistory(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+historyEntryColumns+` ORDER BY h.taken_at DESC, h.history_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return collectHistory(rows)
}

func collectHistory(rows *sql.Rows) ([]models.HistoryEntry, error) {
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
