package adherence

import (
	"sort"
	"time"

	"github.com/hannsv/PillGood/internal/models"
)

// DoseGroup is the scheduling view of a pill group used by the read path
type DoseGroup struct {
	GroupID int64
	Title   string
	Slots   []models.Slot // slots of active schedules
	Days    models.Recurrence
	Active  bool
}

// DoseGroupsFrom projects stored groups. Schedules registered together share their
// recurrence, so the group takes the days of its first active schedule.
func DoseGroupsFrom(groups []*models.GroupWithSchedules) []DoseGroup {
	out := make([]DoseGroup, 0, len(groups))
	for _, g := range groups {
		dg := DoseGroup{GroupID: g.GroupID, Title: g.Title}
		daysSet := false
		for _, s := range g.Schedules {
			if !s.IsActive {
				continue
			}
			dg.Active = true
			dg.Slots = append(dg.Slots, s.Slot)
			if !daysSet {
				dg.Days = s.Days
				daysSet = true
			}
		}
		if !daysSet && len(g.Schedules) > 0 {
			dg.Days = g.Schedules[0].Days
		}
		out = append(out, dg)
	}
	return out
}

// DueOn reports whether the group has doses on the weekday of now
func (g DoseGroup) DueOn(now time.Time) bool {
	return g.Active && len(g.Slots) > 0 && g.Days.Includes(models.WeekdayOf(now))
}

// Task is one dose obligation of today
type Task struct {
	GroupID int64       `json:"group_id"`
	Title   string      `json:"title"`
	Slot    models.Slot `json:"slot"`
}

func (t Task) Key() models.TaskKey {
	return models.TaskKey{GroupID: t.GroupID, Slot: t.Slot}
}

// KeySet is the set of task keys resolved today
type KeySet map[models.TaskKey]struct{}

func (s KeySet) Has(k models.TaskKey) bool {
	_, ok := s[k]
	return ok
}

func (s KeySet) Add(k models.TaskKey) {
	s[k] = struct{}{}
}

// Strings returns the task key strings, sorted
func (s KeySet) Strings() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return out
}

// PendingTasks lists every slot due today that is not completed, ordered by slot.
// The weekday is taken from now in its own location.
func PendingTasks(groups []DoseGroup, completed KeySet, now time.Time) []Task {
	var tasks []Task
	for _, g := range groups {
		if !g.DueOn(now) {
			continue
		}
		for _, slot := range g.Slots {
			t := Task{GroupID: g.GroupID, Title: g.Title, Slot: slot}
			if completed.Has(t.Key()) {
				continue
			}
			tasks = append(tasks, t)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Slot.Order() < tasks[j].Slot.Order()
	})
	return tasks
}

// NextPendingTask returns the first pending task, or nil when nothing is left today
func NextPendingTask(groups []DoseGroup, completed KeySet, now time.Time) *Task {
	tasks := PendingTasks(groups, completed, now)
	if len(tasks) == 0 {
		return nil
	}
	return &tasks[0]
}

// HasAnyPillDueToday reports whether any group had doses today, completed or not
func HasAnyPillDueToday(groups []DoseGroup, now time.Time) bool {
	for _, g := range groups {
		if g.DueOn(now) {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusInactive  Status = "inactive"
	StatusNotDue    Status = "not_due"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// GroupStatus is the completion of one group for today
type GroupStatus struct {
	GroupID int64  `json:"group_id"`
	Title   string `json:"title"`
	Status  Status `json:"status"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
}

func GroupCompletion(groups []DoseGroup, completed KeySet, now time.Time) []GroupStatus {
	out := make([]GroupStatus, 0, len(groups))
	for _, g := range groups {
		st := GroupStatus{GroupID: g.GroupID, Title: g.Title}
		switch {
		case !g.Active:
			st.Status = StatusInactive
		case !g.DueOn(now):
			st.Status = StatusNotDue
		default:
			st.Total = len(g.Slots)
			for _, slot := range g.Slots {
				if completed.Has(models.TaskKey{GroupID: g.GroupID, Slot: slot}) {
					st.Done++
				}
			}
			st.Status = StatusPending
			if st.Done == st.Total {
				st.Status = StatusCompleted
			}
		}
		out = append(out, st)
	}
	return out
}
