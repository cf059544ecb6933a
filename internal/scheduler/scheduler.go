// Package scheduler keeps the notification gateway consistent with the stored
// schedules. Every reconcile is a full wipe of the group's identifiers followed by
// a rebuild from the active schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hannsv/PillGood/internal/metrics"
	"github.com/hannsv/PillGood/internal/models"
	"github.com/hannsv/PillGood/internal/notify"
	"go.uber.org/zap"
)

// Store is the part of the schedule store the scheduler reads
type Store interface {
	// GetGroup returns models.ErrNotFound when the group does not exist
	GetGroup(ctx context.Context, groupID int64) (*models.GroupWithSchedules, error)
	ListGroupsWithSchedules(ctx context.Context) ([]*models.GroupWithSchedules, error)
	GetSetting(ctx context.Context, key, def string) (string, error)
}

type Scheduler struct {
	gateway notify.Gateway
	store   Store
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[int64]*groupLock
}

// groupLock is dropped from the map once no reconcile holds or waits for it,
// so deleted groups leave nothing behind
type groupLock struct {
	mu   sync.Mutex
	refs int
}

func New(gateway notify.Gateway, store Store, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		gateway: gateway,
		store:   store,
		logger:  logger,
		locks:   make(map[int64]*groupLock),
	}
}

// lockGroup serializes reconciles of one group; other groups are not blocked
func (s *Scheduler) lockGroup(groupID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[groupID]
	if !ok {
		l = &groupLock{}
		s.locks[groupID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, groupID)
		}
		s.mu.Unlock()
	}
}


// ReconcileGroup cancels every notification of the group and registers one per
// active schedule and recurrence token. A group that no longer exists is only wiped.
func (s *Scheduler) ReconcileGroup(ctx context.Context, groupID int64) error {
	start := time.Now()
	unlock := s.lockGroup(groupID)
	defer unlock()

	err := s.reconcileGroup(ctx, groupID)
	metrics.RecordReconcile("group", err, time.Since(start))
	return err
}

func (s *Scheduler) reconcileGroup(ctx context.Context, groupID int64) error {
	ids, err := s.gateway.ListAllScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scheduled notifications: %w", err)
	}
	s.cancelPrefixed(ctx, ids, GroupPrefix(groupID))

	group, err := s.store.GetGroup(ctx, groupID)
	if errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("reconcile of missing group, notifications wiped", zap.Int64("group_id", groupID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load group %d: %w", groupID, err)
	}

	s.register(ctx, group)
	return nil
}

// ReconcileAll reconciles every stored group and wipes identifiers of groups
// that no longer exist. Per-group failures are logged and returned joined.
func (s *Scheduler) ReconcileAll(ctx context.Context) error {
	start := time.Now()
	err := s.reconcileAll(ctx)
	metrics.RecordReconcile("all", err, time.Since(start))
	return err
}

// The identifier snapshot is taken before the group list: an identifier registered
// after the snapshot is never a candidate, and one whose group is absent from the
// later list belongs to a deleted group.
func (s *Scheduler) reconcileAll(ctx context.Context) error {
	ids, err := s.gateway.ListAllScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scheduled notifications: %w", err)
	}
	groups, err := s.store.ListGroupsWithSchedules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}

	known := make(map[int64]bool, len(groups))
	for _, g := range groups {
		known[g.GroupID] = true
	}
	for _, id := range ids {
		key, _, ok := ParseIdentifier(id)
		if !ok || known[key.GroupID] {
			continue
		}
		s.logger.Warn("cancelling orphan notification", zap.String("identifier", id))
		s.cancel(ctx, id)
	}

	var errs []error
	for _, g := range groups {
		if err := s.ReconcileGroup(ctx, g.GroupID); err != nil {
			s.logger.Error("failed to reconcile group", zap.Int64("group_id", g.GroupID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CancelGroup wipes every notification of the group without rebuilding
func (s *Scheduler) CancelGroup(ctx context.Context, groupID int64) error {
	unlock := s.lockGroup(groupID)
	defer unlock()

	ids, err := s.gateway.ListAllScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scheduled notifications: %w", err)
	}
	s.cancelPrefixed(ctx, ids, GroupPrefix(groupID))
	return nil
}

func (s *Scheduler) cancelPrefixed(ctx context.Context, ids []string, prefix string) {
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			s.cancel(ctx, id)
		}
	}
}

func (s *Scheduler) cancel(ctx context.Context, id string) {
	if err := s.gateway.Cancel(ctx, id); err != nil {
		metrics.IncrementGatewayOp("cancel", "failed")
		s.logger.Error("failed to cancel notification", zap.String("identifier", id), zap.Error(err))
		return
	}
	metrics.IncrementGatewayOp("cancel", "ok")
}

func (s *Scheduler) register(ctx context.Context, group *models.GroupWithSchedules) {
	body := NotificationBody(group.Title)

	for _, sched := range group.Schedules {
		if !sched.IsActive {
			continue
		}
		hour, minute := s.resolveTime(ctx, &sched)
		title := NotificationTitle(sched.Slot)

		for _, token := range sched.Days.Tokens() {
			id := Identifier(group.GroupID, sched.Slot, token)

			var err error
			if token == models.DailyToken {
				err = s.gateway.ScheduleDaily(ctx, id, hour, minute, title, body)
			} else {
				day, perr := models.ParseWeekday(token)
				if perr != nil {
					s.logger.Error("invalid recurrence token", zap.String("identifier", id), zap.Error(perr))
					continue
				}
				err = s.gateway.ScheduleWeekly(ctx, id, day.GatewayNumber(), hour, minute, title, body)
			}

			if errors.Is(err, notify.ErrPermissionDenied) {
				metrics.IncrementGatewayOp("schedule", "denied")
				s.logger.Warn("notification permission denied, skipping registrations",
					zap.Int64("group_id", group.GroupID))
				return
			}
			if err != nil {
				metrics.IncrementGatewayOp("schedule", "failed")
				s.logger.Error("failed to schedule notification", zap.String("identifier", id), zap.Error(err))
				continue
			}
			metrics.IncrementGatewayOp("schedule", "ok")
			s.logger.Debug("scheduled notification",
				zap.String("identifier", id), zap.Int("hour", hour), zap.Int("minute", minute))
		}
	}
}

// resolveTime picks the custom override of the schedule, else the slot hour setting, else the default
func (s *Scheduler) resolveTime(ctx context.Context, sched *models.Schedule) (hour, minute int) {
	if h, m, ok := sched.TimeOverride(); ok {
		return h, m
	}
	return s.SlotHour(ctx, sched.Slot), 0
}

// SlotHour reads the configured hour of a slot. Unreadable or invalid settings fall back to the default.
func (s *Scheduler) SlotHour(ctx context.Context, slot models.Slot) int {
	def := slot.DefaultHour()
	value, err := s.store.GetSetting(ctx, slot.SettingKey(), strconv.Itoa(def))
	if err != nil {
		s.logger.Error("failed to read slot hour", zap.String("slot", string(slot)), zap.Error(err))
		return def
	}
	hour, err := models.ParseSlotHour(value)
	if err != nil {
		s.logger.Warn("invalid slot hour setting, using default",
			zap.String("slot", string(slot)), zap.String("value", value))
		return def
	}
	return hour
}
