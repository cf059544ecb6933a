// Package adherence computes today's dose state from stored schedules and history
// and records taken or skipped doses.
package adherence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hannsv/PillGood/internal/events"
	"github.com/hannsv/PillGood/internal/metrics"
	"github.com/hannsv/PillGood/internal/models"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type Store interface {
	ListGroupsWithSchedules(ctx context.Context) ([]*models.GroupWithSchedules, error)
	ListHistorySince(ctx context.Context, since time.Time) ([]models.HistoryEntry, error)
	// FindSchedule returns models.ErrNotFound when the group has no schedule for the slot
	FindSchedule(ctx context.Context, groupID int64, slot models.Slot) (*models.Schedule, error)
	// InsertHistory stores h unless the schedule already has a row for takenOn (YYYY-MM-DD).
	// inserted is false when the row was ignored.
	InsertHistory(ctx context.Context, h *models.History, takenOn string) (inserted bool, err error)
	ListHistory(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}

type Engine struct {
	store     Store
	publisher events.Publisher
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(store Store, publisher events.Publisher, logger *zap.Logger, loc *time.Location, opts ...Option) *Engine {
	if publisher == nil {
		publisher = events.Nop{}
	}
	e := &Engine{
		store:     store,
		publisher: publisher,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the current time in the engine's location
func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

// TodayCompletedTaskKeys returns the keys of every dose taken or skipped since
// local midnight. Storage errors yield an empty set.
func (e *Engine) TodayCompletedTaskKeys(ctx context.Context) KeySet {
	keys := make(KeySet)
	since := models.StartOfDay(e.now(), e.loc)

	entries, err := e.store.ListHistorySince(ctx, since)
	if err != nil {
		e.logger.Error("failed to load today's history", zap.Time("since", since), zap.Error(err))
		return keys
	}
	for _, h := range entries {
		keys.Add(h.Key())
	}
	return keys
}

// DoseGroups loads every group in its scheduling view
func (e *Engine) DoseGroups(ctx context.Context) ([]DoseGroup, error) {
	groups, err := e.store.ListGroupsWithSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return DoseGroupsFrom(groups), nil
}

// Snapshot is today's adherence state
type Snapshot struct {
	Date      string        `json:"date"`
	Pending   []Task        `json:"pending"`
	Next      *Task         `json:"next"`
	HasAnyDue bool          `json:"has_any_due"`
	Groups    []GroupStatus `json:"groups"`
	Completed []string      `json:"completed"`
}

// Today loads groups and today's history once and derives the full snapshot.
// A failure to load groups yields an empty snapshot.
func (e *Engine) Today(ctx context.Context) Snapshot {
	now := e.Now()
	snap := Snapshot{Date: models.LocalDate(now, e.loc), Pending: []Task{}, Groups: []GroupStatus{}}

	groups, err := e.DoseGroups(ctx)
	if err != nil {
		e.logger.Error("failed to load groups for today", zap.Error(err))
		snap.Completed = []string{}
		return snap
	}
	completed := e.TodayCompletedTaskKeys(ctx)

	if pending := PendingTasks(groups, completed, now); pending != nil {
		snap.Pending = pending
	}
	snap.Next = NextPendingTask(groups, completed, now)
	snap.HasAnyDue = HasAnyPillDueToday(groups, now)
	snap.Groups = GroupCompletion(groups, completed, now)
	snap.Completed = completed.Strings()
	return snap
}

// CompleteTask records the dose of a group slot as taken for today
func (e *Engine) CompleteTask(ctx context.Context, groupID int64, slot models.Slot) (bool, error) {
	return e.record(ctx, groupID, slot, false)
}

// SkipTask records the dose as skipped; a skipped dose resolves the task for today
func (e *Engine) SkipTask(ctx context.Context, groupID int64, slot models.Slot) (bool, error) {
	return e.record(ctx, groupID, slot, true)
}

// record returns true when a history row was inserted. Already resolved tasks and
// stale references are no-ops.
func (e *Engine) record(ctx context.Context, groupID int64, slot models.Slot, skipped bool) (bool, error) {
	if !slot.Valid() {
		return false, fmt.Errorf("%w: %q", models.ErrInvalidSlot, slot)
	}
	key := models.TaskKey{GroupID: groupID, Slot: slot}

	if e.TodayCompletedTaskKeys(ctx).Has(key) {
		metrics.IncrementDose("duplicate")
		e.logger.Debug("task already resolved today", zap.String("task", key.String()))
		return false, nil
	}

	sched, err := e.store.FindSchedule(ctx, groupID, slot)
	if errors.Is(err, models.ErrNotFound) {
		e.logger.Warn("no schedule for task", zap.String("task", key.String()))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to find schedule for %s: %w", key, err)
	}

	now := e.now()
	h := &models.History{ScheduleID: sched.ScheduleID, TakenAt: now, IsSkipped: skipped}
	inserted, err := e.store.InsertHistory(ctx, h, models.LocalDate(now, e.loc))
	if err != nil {
		return false, fmt.Errorf("failed to insert history for %s: %w", key, err)
	}
	if !inserted {
		metrics.IncrementDose("duplicate")
		e.logger.Debug("task resolved concurrently", zap.String("task", key.String()))
		return false, nil
	}

	kind := "taken"
	if skipped {
		kind = "skipped"
	}
	metrics.IncrementDose(kind)
	e.logger.Info("dose recorded", zap.String("task", key.String()), zap.String("kind", kind))

	evt := events.HistoryChanged{
		GroupID:    groupID,
		Slot:       string(slot),
		ScheduleID: sched.ScheduleID,
		HistoryID:  h.HistoryID,
		IsSkipped:  skipped,
	}
	if err := e.publisher.Publish(ctx, events.RoutingHistoryChanged, evt); err != nil {
		e.logger.Warn("failed to publish history change", zap.String("task", key.String()), zap.Error(err))
	}
	return true, nil
}

// History lists recorded doses, newest first
func (e *Engine) History(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	entries, err := e.store.ListHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}
