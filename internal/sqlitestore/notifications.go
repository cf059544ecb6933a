package sqlitestore

import (
	"context"
	"time"

	"github.com/hannsv/PillGood/internal/notify"
)

// Notifications is the notification gateway persisted in the same database file
type Notifications struct {
	db  *DB
	loc *time.Location
	now func() time.Time
}

func NewNotifications(db *DB, loc *time.Location) *Notifications {
	return &Notifications{db: db, loc: loc, now: time.Now}
}

const notificationColumns = `identifier, kind, weekday, hour, minute, title, body, rule, next_fire_at, last_fired_at, created_at`

func (n *Notifications) ScheduleDaily(ctx context.Context, identifier string, hour, minute int, title, body string) error {
	trigger, err := notify.NewDaily(identifier, hour, minute, title, body, n.now(), n.loc)
	if err != nil {
		return err
	}
	return n.upsert(ctx, trigger)
}

func (n *Notifications) ScheduleWeekly(ctx context.Context, identifier string, weekday, hour, minute int, title, body string) error {
	trigger, err := notify.NewWeekly(identifier, weekday, hour, minute, title, body, n.now(), n.loc)
	if err != nil {
		return err
	}
	return n.upsert(ctx, trigger)
}

func (n *Notifications) upsert(ctx context.Context, t *notify.Notification) error {
	_, err := n.db.ExecContext(ctx,
		`INSERT INTO scheduled_notifications (`+notificationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)
		 ON CONFLICT(identifier) DO UPDATE SET
		   kind = excluded.kind, weekday = excluded.weekday, hour = excluded.hour, minute = excluded.minute,
		   title = excluded.title, body = excluded.body, rule = excluded.rule,
		   next_fire_at = excluded.next_fire_at, last_fired_at = NULL`,
		t.Identifier, string(t.Kind), t.Weekday, t.Hour, t.Minute, t.Title, t.Body, t.Rule,
		t.NextFireAt.UTC(), t.CreatedAt.UTC(),
	)
	return err
}

func (n *Notifications) Cancel(ctx context.Context, identifier string) error {
	_, err := n.db.ExecContext(ctx, `DELETE FROM scheduled_notifications WHERE identifier = ?`, identifier)
	return err
}

func (n *Notifications) ListAllScheduled(ctx context.Context) ([]string, error) {
	rows, err := n.db.QueryContext(ctx, `SELECT identifier FROM scheduled_notifications ORDER BY identifier ASC`)
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
func (n *Notifications) List(ctx context.Context) ([]*notify.Notification, error) {
	return n.query(ctx, `SELECT `+notificationColumns+` FROM scheduled_notifications ORDER BY next_fire_at ASC, identifier ASC`)
}

// ListDue returns the triggers whose next fire time is not after until
func (n *Notifications) ListDue(ctx context.Context, until time.Time) ([]*notify.Notification, error) {
	return n.query(ctx,
		`SELECT `+notificationColumns+` FROM scheduled_notifications WHERE next_fire_at <= ? ORDER BY next_fire_at ASC`,
		until.UTC(),
	)
}

// MarkFired advances a trigger that still has the fire time it was read with.
// It reports false when the trigger was re-registered or cancelled meanwhile.
func (n *Notifications) MarkFired(ctx context.Context, identifier string, firedAt, prevFireAt, nextFireAt time.Time) (bool, error) {
	result, err := n.db.ExecContext(ctx,
		`UPDATE scheduled_notifications SET last_fired_at = ?, next_fire_at = ?
		 WHERE identifier = ? AND next_fire_at = ?`,
		firedAt.UTC(), nextFireAt.UTC(), identifier, prevFireAt.UTC(),
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (n *Notifications) query(ctx context.Context, query string, args ...any) ([]*notify.Notification, error) {
	rows, err := n.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*notify.Notification
	for rows.Next() {
		t := &notify.Notification{}
		var kind string
		if err := rows.Scan(&t.Identifier, &kind, &t.Weekday, &t.Hour, &t.Minute, &t.Title, &t.Body,
			&t.Rule, &t.NextFireAt, &t.LastFiredAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = notify.Kind(kind)
		list = append(list, t)
	}
	return list, rows.Err()
}
