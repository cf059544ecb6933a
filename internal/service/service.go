// Package service implements the operations that change groups and settings and
// keeps the notification gateway in step with them.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hannsv/PillGood/internal/events"
	"github.com/hannsv/PillGood/internal/models"
	"github.com/hannsv/PillGood/internal/notify"
	"go.uber.org/zap"
)

var (
	ErrNotFound   = errors.New("group not found")
	ErrValidation = errors.New("invalid request")
)

type Store interface {
	InsertGroup(ctx context.Context, n *models.NewGroup) (*models.GroupWithSchedules, error)
	GetGroup(ctx context.Context, groupID int64) (*models.GroupWithSchedules, error)
	ListGroupsWithSchedules(ctx context.Context) ([]*models.GroupWithSchedules, error)
	UpdateGroupTitle(ctx context.Context, groupID int64, title string) error
	UpdateScheduleActive(ctx context.Context, groupID int64, active bool) error
	UpdateScheduleTime(ctx context.Context, groupID int64, slot models.Slot, hhmm *string) error
	DeleteGroup(ctx context.Context, groupID int64) error
	GetSetting(ctx context.Context, key, def string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Reconciler is the reminder scheduler
type Reconciler interface {
	ReconcileGroup(ctx context.Context, groupID int64) error
	ReconcileAll(ctx context.Context) error
	CancelGroup(ctx context.Context, groupID int64) error
}

// NotificationsSettingKey persists the notifications switch across restarts
const NotificationsSettingKey = "notifications_enabled"

type Service struct {
	store      Store
	scheduler  Reconciler
	publisher  events.Publisher
	permission *notify.Permission
	logger     *zap.Logger
}

type Option func(*Service)

// WithPermission lets the service flip the switch guarding the notification gateway
func WithPermission(p *notify.Permission) Option {
	return func(s *Service) { s.permission = p }
}

func New(store Store, scheduler Reconciler, publisher events.Publisher, logger *zap.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &Service{store: store, scheduler: scheduler, publisher: publisher, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterGroup stores a group with its pills and schedules, then registers its notifications.
// A missing title is derived from the pills; a missing description from the first pill's company.
func (s *Service) RegisterGroup(ctx context.Context, n models.NewGroup) (*models.GroupWithSchedules, error) {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		n.Title = models.DefaultTitle(n.Pills)
	}
	if n.Title == "" {
		return nil, fmt.Errorf("%w: title or at least one pill is required", ErrValidation)
	}
	if n.Description == "" && len(n.Pills) > 0 {
		n.Description = n.Pills[0].Company
	}
	if len(n.Slots) == 0 {
		return nil, fmt.Errorf("%w: at least one slot is required", ErrValidation)
	}
	for _, slot := range n.Slots {
		if !slot.Valid() {
			return nil, fmt.Errorf("%w: %w", ErrValidation, fmt.Errorf("%w: %q", models.ErrInvalidSlot, slot))
		}
	}
	for _, p := range n.Pills {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("%w: pill name is required", ErrValidation)
		}
	}

	g, err := s.store.InsertGroup(ctx, &n)
	if err != nil {
		return nil, fmt.Errorf("failed to register group: %w", err)
	}
	s.logger.Info("group registered",
		zap.Int64("group_id", g.GroupID), zap.String("title", g.Title), zap.Int("schedules", len(g.Schedules)))

	if g.IsActive() {
		s.reconcile(ctx, g.GroupID)
	}
	s.publish(ctx, g.GroupID, events.GroupCreated)
	return g, nil
}

func (s *Service) GetGroup(ctx context.Context, groupID int64) (*models.GroupWithSchedules, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return g, nil
}

func (s *Service) ListGroups(ctx context.Context) ([]*models.GroupWithSchedules, error) {
	groups, err := s.store.ListGroupsWithSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// SetActive toggles every schedule of the group. Turning a group off wipes its notifications.
func (s *Service) SetActive(ctx context.Context, groupID int64, active bool) error {
	if err := s.store.UpdateScheduleActive(ctx, groupID, active); err != nil {
		return mapNotFound(err)
	}
	s.reconcile(ctx, groupID)

	action := events.GroupDeactivated
	if active {
		action = events.GroupActivated
	}
	s.publish(ctx, groupID, action)
	return nil
}

// RenameGroup changes the title; notifications are rebuilt since their body carries it
func (s *Service) RenameGroup(ctx context.Context, groupID int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := s.store.UpdateGroupTitle(ctx, groupID, title); err != nil {
		return mapNotFound(err)
	}
	s.reconcile(ctx, groupID)
	s.publish(ctx, groupID, events.GroupRenamed)
	return nil
}

// DeleteGroup cancels the group's notifications and then deletes it with its schedules and history
func (s *Service) DeleteGroup(ctx context.Context, groupID int64) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return mapNotFound(err)
	}
	if err := s.scheduler.CancelGroup(ctx, groupID); err != nil {
		s.logger.Error("failed to cancel notifications before delete", zap.Int64("group_id", groupID), zap.Error(err))
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return mapNotFound(err)
	}
	s.logger.Info("group deleted", zap.Int64("group_id", groupID))
	s.publish(ctx, groupID, events.GroupDeleted)
	return nil
}

// SlotHours returns the configured hour of every slot
func (s *Service) SlotHours(ctx context.Context) (models.SlotHours, error) {
	hours := models.DefaultSlotHours()
	for _, slot := range models.SlotOrder {
		value, err := s.store.GetSetting(ctx, slot.SettingKey(), strconv.Itoa(slot.DefaultHour()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", slot.SettingKey(), err)
		}
		if hour, err := models.ParseSlotHour(value); err == nil {
			hours[slot] = hour
		}
	}
	return hours, nil
}

// SetSlotHour stores the hour of a slot and reconciles every group
func (s *Service) SetSlotHour(ctx context.Context, slot models.Slot, hour int) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %w", ErrValidation, fmt.Errorf("%w: %q", models.ErrInvalidSlot, slot))
	}
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ErrValidation, hour)
	}
	if err := s.store.SetSetting(ctx, slot.SettingKey(), strconv.Itoa(hour)); err != nil {
		return fmt.Errorf("failed to save %s: %w", slot.SettingKey(), err)
	}
	s.logger.Info("slot hour changed", zap.String("slot", string(slot)), zap.Int("hour", hour))

	if err := s.scheduler.ReconcileAll(ctx); err != nil {
		s.logger.Error("failed to reconcile after slot hour change", zap.Error(err))
	}
	s.publish(ctx, 0, events.SettingsChanged)
	return nil
}

// SetScheduleTime overrides the slot hour of one schedule with a HH:MM time.
// An empty value clears the override.
func (s *Service) SetScheduleTime(ctx context.Context, groupID int64, slot models.Slot, hhmm string) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %w", ErrValidation, fmt.Errorf("%w: %q", models.ErrInvalidSlot, slot))
	}
	var value *string
	if hhmm = strings.TrimSpace(hhmm); hhmm != "" {
		t, err := time.Parse("15:04", hhmm)
		if err != nil {
			return fmt.Errorf("%w: time %q is not HH:MM", ErrValidation, hhmm)
		}
		normalized := t.Format("15:04")
		value = &normalized
	}
	if err := s.store.UpdateScheduleTime(ctx, groupID, slot, value); err != nil {
		return mapNotFound(err)
	}
	s.logger.Info("schedule time changed",
		zap.Int64("group_id", groupID), zap.String("slot", string(slot)), zap.String("time", hhmm))
	s.reconcile(ctx, groupID)
	s.publish(ctx, groupID, events.ScheduleTimeChanged)
	return nil
}

// NotificationsEnabled reports the current switch; without a switch notifications are on
func (s *Service) NotificationsEnabled() bool {
	return s.permission == nil || s.permission.Granted()
}

// RestoreNotifications applies the persisted switch, keeping the configured default when none is stored
func (s *Service) RestoreNotifications(ctx context.Context) {
	if s.permission == nil {
		return
	}
	value, err := s.store.GetSetting(ctx, NotificationsSettingKey, strconv.FormatBool(s.permission.Granted()))
	if err != nil {
		s.logger.Error("failed to read notifications switch", zap.Error(err))
		return
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		s.logger.Warn("invalid notifications switch, keeping default", zap.String("value", value))
		return
	}
	s.permission.Set(enabled)
}

// SetNotificationsEnabled flips and persists the switch, then reconciles every group:
// turning it off wipes all notifications, turning it on registers them again.
func (s *Service) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	if s.permission == nil {
		return errors.New("notifications switch not configured")
	}
	if err := s.store.SetSetting(ctx, NotificationsSettingKey, strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("failed to save %s: %w", NotificationsSettingKey, err)
	}
	s.permission.Set(enabled)
	s.logger.Info("notifications switched", zap.Bool("enabled", enabled))

	if err := s.scheduler.ReconcileAll(ctx); err != nil {
		s.logger.Error("failed to reconcile after notifications switch", zap.Error(err))
	}
	s.publish(ctx, 0, events.SettingsChanged)
	return nil
}

// reconcile failures leave stale notifications until the next reconcile; the write already succeeded
func (s *Service) reconcile(ctx context.Context, groupID int64) {
	if err := s.scheduler.ReconcileGroup(ctx, groupID); err != nil {
		s.logger.Error("failed to reconcile group", zap.Int64("group_id", groupID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, groupID int64, action string) {
	if err := s.publisher.Publish(ctx, events.RoutingGroupChanged, events.GroupChanged{GroupID: groupID, Action: action}); err != nil {
		s.logger.Warn("failed to publish group change", zap.Int64("group_id", groupID), zap.String("action", action), zap.Error(err))
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
