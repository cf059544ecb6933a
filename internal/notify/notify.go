// Package notify defines the notification gateway contract: triggers registered under
// a unique identifier, repeating daily at an hour or weekly on a weekday at an hour.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hannsv/PillGood/internal/models"
	"github.com/hannsv/PillGood/internal/rrule"
)

// ErrPermissionDenied is returned by a gateway when notifications are not allowed.
// Callers degrade to "no notifications fire"; it never blocks storage writes.
var ErrPermissionDenied = errors.New("notification permission not granted")

// Gateway is the notification store the scheduler reconciles against.
// It has no prefix deletion: bulk cancellation is list, filter, cancel each.
type Gateway interface {
	ScheduleDaily(ctx context.Context, identifier string, hour, minute int, title, body string) error
	// ScheduleWeekly takes weekday as Sunday=1 .. Saturday=7
	ScheduleWeekly(ctx context.Context, identifier string, weekday, hour, minute int, title, body string) error
	Cancel(ctx context.Context, identifier string) error
	ListAllScheduled(ctx context.Context) ([]string, error)
}

type Kind string

const (
	KindDaily  Kind = "daily"
	KindWeekly Kind = "weekly"
)

// Notification is a registered repeating trigger as persisted by a gateway
type Notification struct {
	Identifier  string     `json:"identifier"`
	Kind        Kind       `json:"kind"`
	Weekday     *int       `json:"weekday"` // Sunday=1 .. Saturday=7, weekly only
	Hour        int        `json:"hour"`
	Minute      int        `json:"minute"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Rule        string     `json:"rule"`
	NextFireAt  time.Time  `json:"next_fire_at"`
	LastFiredAt *time.Time `json:"last_fired_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewDaily builds a daily trigger and computes its first fire time after now
func NewDaily(identifier string, hour, minute int, title, body string, now time.Time, loc *time.Location) (*Notification, error) {
	if err := validateTime(hour, minute); err != nil {
		return nil, err
	}
	b := rrule.DailyAt(hour, minute)
	next, err := b.Next(now, loc)
	if err != nil {
		return nil, err
	}
	return &Notification{
		Identifier: identifier,
		Kind:       KindDaily,
		Hour:       hour,
		Minute:     minute,
		Title:      title,
		Body:       body,
		Rule:       b.String(),
		NextFireAt: next,
		CreatedAt:  now,
	}, nil
}

// NewWeekly builds a weekly trigger and computes its first fire time after now
func NewWeekly(identifier string, weekday, hour, minute int, title, body string, now time.Time, loc *time.Location) (*Notification, error) {
	if err := validateTime(hour, minute); err != nil {
		return nil, err
	}
	day, err := models.WeekdayFromGatewayNumber(weekday)
	if err != nil {
		return nil, err
	}
	b, err := rrule.WeeklyAt(day, hour, minute)
	if err != nil {
		return nil, err
	}
	next, err := b.Next(now, loc)
	if err != nil {
		return nil, err
	}
	return &Notification{
		Identifier: identifier,
		Kind:       KindWeekly,
		Weekday:    &weekday,
		Hour:       hour,
		Minute:     minute,
		Title:      title,
		Body:       body,
		Rule:       b.String(),
		NextFireAt: next,
		CreatedAt:  now,
	}, nil
}

// FollowingFire returns the next fire time strictly after the given time
func (n *Notification) FollowingFire(after time.Time, loc *time.Location) (time.Time, error) {
	next, err := rrule.NextOccurrence(n.Rule, n.NextFireAt, after, loc)
	if err != nil {
		return time.Time{}, err
	}
	if next == nil {
		return time.Time{}, fmt.Errorf("notification %s has no further occurrence", n.Identifier)
	}
	return *next, nil
}

// Describe returns a human readable description of the trigger
func (n *Notification) Describe() string {
	return rrule.HumanReadableKorean(n.Rule)
}

func validateTime(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("hour %d out of range", hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("minute %d out of range", minute)
	}
	return nil
}
