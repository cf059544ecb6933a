// Package events publishes change notifications about doses and groups.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const ExchangeName = "pillgood"

const (
	RoutingHistoryChanged = "history.changed"
	RoutingGroupChanged   = "group.changed"
)

// Group change actions
const (
	GroupCreated        = "created"
	GroupRenamed        = "renamed"
	GroupActivated      = "activated"
	GroupDeactivated    = "deactivated"
	GroupDeleted        = "deleted"
	SettingsChanged     = "settings_changed"
	ScheduleTimeChanged = "schedule_time_changed"
)

// Event is the envelope of every published message
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type HistoryChanged struct {
	GroupID    int64  `json:"group_id"`
	Slot       string `json:"slot"`
	ScheduleID int64  `json:"schedule_id"`
	HistoryID  int64  `json:"history_id"`
	IsSkipped  bool   `json:"is_skipped"`
}

type GroupChanged struct {
	GroupID int64  `json:"group_id"`
	Action  string `json:"action"`
}

func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}, nil
}

// Publisher delivers an event under a routing key
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
