package models

import (
	"fmt"
	"time"
)

// PillGroup is a named set of pills taken together on the same schedules
type PillGroup struct {
	GroupID     int64     `json:"group_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Pill is informational only; it does not take part in scheduling
type Pill struct {
	PillID  int64  `json:"pill_id"`
	GroupID *int64 `json:"group_id"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Memo    string `json:"memo"`
}

// Schedule binds a group to a slot and a recurrence
type Schedule struct {
	ScheduleID int64      `json:"schedule_id"`
	GroupID    int64      `json:"group_id"`
	Slot       Slot       `json:"slot"`
	Time       *string    `json:"time"` // optional HH:MM override of the slot hour
	Days       Recurrence `json:"days"`
	IsActive   bool       `json:"is_active"`
}

// TimeOverride returns the custom hour and minute of the schedule, if one is set and valid
func (s *Schedule) TimeOverride() (hour, minute int, ok bool) {
	if s.Time == nil || *s.Time == "" {
		return 0, 0, false
	}
	t, err := time.Parse("15:04", *s.Time)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

// History is one completed or skipped dose
type History struct {
	HistoryID  int64     `json:"history_id"`
	ScheduleID int64     `json:"schedule_id"`
	TakenAt    time.Time `json:"taken_at"`
	IsSkipped  bool      `json:"is_skipped"`
}

// HistoryEntry is a history row joined with its schedule and group
type HistoryEntry struct {
	HistoryID  int64     `json:"history_id"`
	ScheduleID int64     `json:"schedule_id"`
	GroupID    int64     `json:"group_id"`
	GroupTitle string    `json:"group_title"`
	Slot       Slot      `json:"slot"`
	TakenAt    time.Time `json:"taken_at"`
	IsSkipped  bool      `json:"is_skipped"`
}

// Key returns the task key the entry resolves
func (h HistoryEntry) Key() TaskKey {
	return TaskKey{GroupID: h.GroupID, Slot: h.Slot}
}

// GroupWithSchedules is a group loaded together with its pills and schedules
type GroupWithSchedules struct {
	PillGroup
	Pills     []Pill     `json:"pills"`
	Schedules []Schedule `json:"schedules"`
}

// IsActive reports whether any schedule of the group is active
func (g *GroupWithSchedules) IsActive() bool {
	for _, s := range g.Schedules {
		if s.IsActive {
			return true
		}
	}
	return false
}

// ScheduleFor returns the schedule of the group for the given slot
func (g *GroupWithSchedules) ScheduleFor(slot Slot) (*Schedule, bool) {
	for i := range g.Schedules {
		if g.Schedules[i].Slot == slot {
			return &g.Schedules[i], true
		}
	}
	return nil, false
}

// TaskKey identifies one dose obligation within a single day
type TaskKey struct {
	GroupID int64
	Slot    Slot
}

func (k TaskKey) String() string {
	return fmt.Sprintf("%d_%s", k.GroupID, k.Slot)
}

// NewGroup is the input of a group registration: the group, its pills and one
// schedule per slot sharing the same recurrence and active flag.
type NewGroup struct {
	Title       string
	Description string
	Pills       []Pill
	Slots       []Slot
	Days        Recurrence
	IsActive    bool
}

// Schedules expands the registration into one schedule per slot. Duplicate slots are dropped.
func (n *NewGroup) Schedules() []Schedule {
	seen := make(map[Slot]bool, len(n.Slots))
	schedules := make([]Schedule, 0, len(n.Slots))
	for _, slot := range n.Slots {
		if seen[slot] {
			continue
		}
		seen[slot] = true
		schedules = append(schedules, Schedule{
			Slot:     slot,
			Days:     n.Days,
			IsActive: n.IsActive,
		})
	}
	return schedules
}

// DefaultTitle derives a group title from its pills when none was given
func DefaultTitle(pills []Pill) string {
	switch len(pills) {
	case 0:
		return ""
	case 1:
		return pills[0].Name
	default:
		return fmt.Sprintf("%s 외 %d개", pills[0].Name, len(pills)-1)
	}
}
