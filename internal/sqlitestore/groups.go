package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hannsv/PillGood/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// InsertGroup stores the group, its pills and one schedule per slot in a single transaction
func (db *DB) InsertGroup(ctx context.Context, n *models.NewGroup) (*models.GroupWithSchedules, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	g := &models.GroupWithSchedules{}
	g.Title, g.Description, g.CreatedAt = n.Title, n.Description, time.Now().UTC()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO pill_groups (title, description, created_at) VALUES (?, ?, ?)`,
		g.Title, g.Description, g.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert group: %w", err)
	}
	if g.GroupID, err = result.LastInsertId(); err != nil {
		return nil, err
	}

	for _, p := range n.Pills {
		pill := models.Pill{GroupID: &g.GroupID, Name: p.Name, Company: p.Company, Memo: p.Memo}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO pills (group_id, name, company, memo) VALUES (?, ?, ?, ?)`,
			g.GroupID, pill.Name, pill.Company, pill.Memo,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert pill %q: %w", p.Name, err)
		}
		if pill.PillID, err = result.LastInsertId(); err != nil {
			return nil, err
		}
		g.Pills = append(g.Pills, pill)
	}

	for _, s := range n.Schedules() {
		s.GroupID = g.GroupID
		result, err := tx.ExecContext(ctx,
			`INSERT INTO schedules (group_id, slot, time, days, is_active) VALUES (?, ?, ?, ?, ?)`,
			s.GroupID, string(s.Slot), s.Time, s.Days, s.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s schedule: %w", s.Slot, err)
		}
		if s.ScheduleID, err = result.LastInsertId(); err != nil {
			return nil, err
		}
		g.Schedules = append(g.Schedules, s)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group: %w", err)
	}
	return g, nil
}

func (db *DB) GetGroup(ctx context.Context, groupID int64) (*models.GroupWithSchedules, error) {
	g := &models.GroupWithSchedules{}
	err := db.QueryRowContext(ctx,
		`SELECT group_id, title, description, created_at FROM pill_groups WHERE group_id = ?`,
		groupID,
	).Scan(&g.GroupID, &g.Title, &g.Description, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if g.Pills, err = db.listPills(ctx, `WHERE group_id = ?`, groupID); err != nil {
		return nil, err
	}
	if g.Schedules, err = db.listSchedules(ctx, `WHERE group_id = ?`, groupID); err != nil {
		return nil, err
	}
	return g, nil
}

// ListGroupsWithSchedules returns every group, oldest first, with pills and schedules attached
func (db *DB) ListGroupsWithSchedules(ctx context.Context) ([]*models.GroupWithSchedules, error) {
	groups, err := db.listGroups(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.GroupWithSchedules, len(groups))
	for _, g := range groups {
		byID[g.GroupID] = g
	}

	pills, err := db.listPills(ctx, `WHERE group_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	for _, p := range pills {
		if g, ok := byID[*p.GroupID]; ok {
			g.Pills = append(g.Pills, p)
		}
	}

	schedules, err := db.listSchedules(ctx, ``)
	if err != nil {
		return nil, err
	}
	for _, s := range schedules {
		if g, ok := byID[s.GroupID]; ok {
			g.Schedules = append(g.Schedules, s)
		}
	}
	return groups, nil
}

func (db *DB) UpdateGroupTitle(ctx context.Context, groupID int64, title string) error {
	result, err := db.ExecContext(ctx, `UPDATE pill_groups SET title = ? WHERE group_id = ?`, title, groupID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteGroup removes the group; pills, schedules and history cascade
func (db *DB) DeleteGroup(ctx context.Context, groupID int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM pill_groups WHERE group_id = ?`, groupID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (db *DB) FindSchedule(ctx context.Context, groupID int64, slot models.Slot) (*models.Schedule, error) {
	row := db.QueryRowContext(ctx,
		`SELECT schedule_id, group_id, slot, time, days, is_active FROM schedules WHERE group_id = ? AND slot = ?`,
		groupID, string(slot),
	)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return s, err
}

// UpdateScheduleActive toggles every schedule of the group
func (db *DB) UpdateScheduleActive(ctx context.Context, groupID int64, active bool) error {
	result, err := db.ExecContext(ctx, `UPDATE schedules SET is_active = ? WHERE group_id = ?`, active, groupID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// UpdateScheduleTime sets or clears (nil) the HH:MM override of one schedule
func (db *DB) UpdateScheduleTime(ctx context.Context, groupID int64, slot models.Slot, hhmm *string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE schedules SET time = ? WHERE group_id = ? AND slot = ?`,
		hhmm, groupID, string(slot),
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (db *DB) listGroups(ctx context.Context) ([]*models.GroupWithSchedules, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT group_id, title, description, created_at FROM pill_groups ORDER BY created_at ASC, group_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.GroupWithSchedules
	for rows.Next() {
		g := &models.GroupWithSchedules{}
		if err := rows.Scan(&g.GroupID, &g.Title, &g.Description, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (db *DB) listPills(ctx context.Context, where string, args ...any) ([]models.Pill, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT pill_id, group_id, name, company, memo FROM pills `+where+` ORDER BY pill_id ASC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pills []models.Pill
	for rows.Next() {
		var p models.Pill
		if err := rows.Scan(&p.PillID, &p.GroupID, &p.Name, &p.Company, &p.Memo); err != nil {
			return nil, err
		}
		pills = append(pills, p)
	}
	return pills, rows.Err()
}

func (db *DB) listSchedules(ctx context.Context, where string, args ...any) ([]models.Schedule, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT schedule_id, group_id, slot, time, days, is_active FROM schedules `+where+` ORDER BY schedule_id ASC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	s := &models.Schedule{}
	var slot string
	if err := row.Scan(&s.ScheduleID, &s.GroupID, &slot, &s.Time, &s.Days, &s.IsActive); err != nil {
		return nil, err
	}
	s.Slot = models.Slot(slot)
	return s, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
