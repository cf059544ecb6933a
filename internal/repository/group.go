package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hannsv/PillGood/internal/database"
	"github.com/hannsv/PillGood/internal/models"
	"github.com/jackc/pgx/v5"
)

type GroupRepository struct {
	db *database.DB
}

func NewGroupRepository(db *database.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// InsertGroup stores the group, its pills and one schedule per slot in a single transaction
func (r *GroupRepository) InsertGroup(ctx context.Context, n *models.NewGroup) (*models.GroupWithSchedules, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	g := &models.GroupWithSchedules{}
	err = tx.QueryRow(ctx,
		`INSERT INTO pill_groups (title, description) VALUES ($1, $2)
		 RETURNING group_id, title, description, created_at`,
		n.Title, n.Description,
	).Scan(&g.GroupID, &g.Title, &g.Description, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert group: %w", err)
	}

	for _, p := range n.Pills {
		pill := models.Pill{GroupID: &g.GroupID, Name: p.Name, Company: p.Company, Memo: p.Memo}
		err := tx.QueryRow(ctx,
			`INSERT INTO pills (group_id, name, company, memo) VALUES ($1, $2, $3, $4) RETURNING pill_id`,
			g.GroupID, pill.Name, pill.Company, pill.Memo,
		).Scan(&pill.PillID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert pill %q: %w", p.Name, err)
		}
		g.Pills = append(g.Pills, pill)
	}

	for _, s := range n.Schedules() {
		s.GroupID = g.GroupID
		days, err := s.Days.MarshalJSON()
		if err != nil {
			return nil, err
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO schedules (group_id, slot, time, days, is_active) VALUES ($1, $2, $3, $4, $5)
			 RETURNING schedule_id`,
			s.GroupID, string(s.Slot), s.Time, string(days), s.IsActive,
		).Scan(&s.ScheduleID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s schedule: %w", s.Slot, err)
		}
		g.Schedules = append(g.Schedules, s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit group: %w", err)
	}
	return g, nil
}

func (r *GroupRepository) GetGroup(ctx context.Context, groupID int64) (*models.GroupWithSchedules, error) {
	g := &models.GroupWithSchedules{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT group_id, title, description, created_at FROM pill_groups WHERE group_id = $1`,
		groupID,
	).Scan(&g.GroupID, &g.Title, &g.Description, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	pills, err := r.listPills(ctx, `WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	schedules, err := r.listSchedules(ctx, `WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	g.Pills = pills
	g.Schedules = schedules
	return g, nil
}

// ListGroupsWithSchedules returns every group, oldest first, with pills and schedules attached
func (r *GroupRepository) ListGroupsWithSchedules(ctx context.Context) ([]*models.GroupWithSchedules, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT group_id, title, description, created_at FROM pill_groups ORDER BY created_at ASC, group_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.GroupWithSchedules
	byID := make(map[int64]*models.GroupWithSchedules)
	for rows.Next() {
		g := &models.GroupWithSchedules{}
		if err := rows.Scan(&g.GroupID, &g.Title, &g.Description, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
		byID[g.GroupID] = g
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pills, err := r.listPills(ctx, `WHERE group_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	for _, p := range pills {
		if g, ok := byID[*p.GroupID]; ok {
			g.Pills = append(g.Pills, p)
		}
	}

	schedules, err := r.listSchedules(ctx, ``)
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

func (r *GroupRepository) UpdateGroupTitle(ctx context.Context, groupID int64, title string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE pill_groups SET title = $1 WHERE group_id = $2`,
		title, groupID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteGroup removes the group; pills, schedules and history cascade
func (r *GroupRepository) DeleteGroup(ctx context.Context, groupID int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM pill_groups WHERE group_id = $1`, groupID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *GroupRepository) listPills(ctx context.Context, where string, args ...any) ([]models.Pill, error) {
	rows, err := r.db.Pool.Query(ctx,
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

func (r *GroupRepository) listSchedules(ctx context.Context, where string, args ...any) ([]models.Schedule, error) {
	rows, err := r.db.Pool.Query(ctx,
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
	var slot, days string
	if err := row.Scan(&s.ScheduleID, &s.GroupID, &slot, &s.Time, &days, &s.IsActive); err != nil {
		return nil, err
	}
	s.Slot = models.Slot(slot)
	if err := s.Days.UnmarshalJSON([]byte(days)); err != nil {
		return nil, fmt.Errorf("schedule %d has invalid days %q: %w", s.ScheduleID, days, err)
	}
	return s, nil
}
