package repository

import (
	"context"
	"time"

	"github.com/hannsv/PillGood/internal/database"
	"github.com/hannsv/PillGood/internal/notify"
)

// NotificationRepository is the persisted notification gateway: every registered
// trigger is a row keyed by its identifier, re-registration replaces it.
type NotificationRepository struct {
	db  *database.DB
	loc *time.Location
	now func() time.Time
}

func NewNotificationRepository(db *database.DB, loc *time.Location) *NotificationRepository {
	return &NotificationRepository{db: db, loc: loc, now: time.Now}
}

const notificationColumns = `identifier, kind, weekday, hour, minute, title, body, rule, next_fire_at, last_fired_at, created_at`

func (r *NotificationRepository) ScheduleDaily(ctx context.Context, identifier string, hour, minute int, title, body string) error {
	n, err := notify.NewDaily(identifier, hour, minute, title, body, r.now(), r.loc)
	if err != nil {
		return err
	}
	return r.upsert(ctx, n)
}

func (r *NotificationRepository) ScheduleWeekly(ctx context.Context, identifier string, weekday, hour, minute int, title, body string) error {
	n, err := notify.NewWeekly(identifier, weekday, hour, minute, title, body, r.now(), r.loc)
	if err != nil {
		return err
	}
	return r.upsert(ctx, n)
}

func (r *NotificationRepository) upsert(ctx context.Context, n *notify.Notification) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO scheduled_notifications (`+notificationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, $10)
		 ON CONFLICT (identifier) DO UPDATE SET
		   kind = EXCLUDED.kind, weekday = EXCLUDED.weekday, hour = EXCLUDED.hour, minute = EXCLUDED.minute,
		   title = EXCLUDED.title, body = EXCLUDED.body, rule = EXCLUDED.rule,
		   next_fire_at = EXCLUDED.next_fire_at, last_fired_at = NULL`,
		n.Identifier, string(n.Kind), n.Weekday, n.Hour, n.Minute, n.Title, n.Body, n.Rule, n.NextFireAt, n.CreatedAt,
	)
	return err
}

// Cancel is a no-op for unknown identifiers
func (r *NotificationRepository) Cancel(ctx context.Context, identifier string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM scheduled_notifications WHERE identifier = $1`, identifier)
	return err
}

func (r *NotificationRepository) ListAllScheduled(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT identifier FROM scheduled_notifications ORDER BY identifier ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List returns every trigger ordered by its next fire time
func (r *NotificationRepository) List(ctx context.Context) ([]*notify.Notification, error) {
	return r.query(ctx, `SELECT `+notificationColumns+` FROM scheduled_notifications ORDER BY next_fire_at ASC, identifier ASC`)
}

// ListDue returns the triggers whose next fire time is not after until
func (r *NotificationRepository) ListDue(ctx context.Context, until time.Time) ([]*notify.Notification, error) {
	return r.query(ctx,
		`SELECT `+notificationColumns+` FROM scheduled_notifications WHERE next_fire_at <= $1 ORDER BY next_fire_at ASC`,
		until,
	)
}

// MarkFired advances a trigger that still has the fire time it was read with.
// It reports false when the trigger was re-registered or cancelled meanwhile.
func (r *NotificationRepository) MarkFired(ctx context.Context, identifier string, firedAt, prevFireAt, nextFireAt time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE scheduled_notifications SET last_fired_at = $1, next_fire_at = $2
		 WHERE identifier = $3 AND next_fire_at = $4`,
		firedAt, nextFireAt, identifier, prevFireAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *NotificationRepository) query(ctx context.Context, sql string, args ...any) ([]*notify.Notification, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*notify.Notification
	for rows.Next() {
		n := &notify.Notification{}
		var kind string
		if err := rows.Scan(&n.Identifier, &kind, &n.Weekday, &n.Hour, &n.Minute, &n.Title, &n.Body,
			&n.Rule, &n.NextFireAt, &n.LastFiredAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = notify.Kind(kind)
		list = append(list, n)
	}
	return list, rows.Err()
}
