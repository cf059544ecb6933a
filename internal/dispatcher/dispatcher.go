package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/hannsv/PillGood/internal/dedupe"
	"github.com/hannsv/PillGood/internal/metrics"
	"github.com/hannsv/PillGood/internal/models"
	"github.com/hannsv/PillGood/internal/notify"
	"github.com/hannsv/PillGood/internal/scheduler"
	"go.uber.org/zap"
)

const (
	defaultInterval = 30 * time.Second
	// Fire times missed by more than this (e.g. while the process was down) are skipped
	defaultGrace = 15 * time.Minute
	dedupeTTL    = 24 * time.Hour
)

// Source is the persisted notification gateway the dispatcher drains
type Source interface {
	ListDue(ctx context.Context, until time.Time) ([]*notify.Notification, error)
	MarkFired(ctx context.Context, identifier string, firedAt, prevFireAt, nextFireAt time.Time) (bool, error)
}

// Reminder is one delivery of a notification
type Reminder struct {
	Identifier string
	Title      string
	Body       string
	FireAt     time.Time
	Task       *models.TaskKey // nil for identifiers not derived from a schedule
}

type Sender interface {
	SendReminder(ctx context.Context, r Reminder) error
}

type Dispatcher struct {
	source   Source
	sender   Sender
	guard    dedupe.Guard
	logger   *zap.Logger
	loc      *time.Location
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	notifyCh chan struct{}
}

func New(source Source, sender Sender, guard dedupe.Guard, logger *zap.Logger, loc *time.Location, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	if guard == nil {
		guard = dedupe.NewMemory()
	}
	return &Dispatcher{
		source:   source,
		sender:   sender,
		guard:    guard,
		logger:   logger,
		loc:      loc,
		interval: interval,
		grace:    defaultGrace,
		now:      time.Now,
		notifyCh: make(chan struct{}, 1),
	}
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (d *Dispatcher) Notify() {
	select {
	case d.notifyCh <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Dispatcher started", zap.Duration("interval", d.interval))
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopped")
			return
		case <-ticker.C:
			d.Check(ctx)
		case <-d.notifyCh:
			d.logger.Debug("Dispatcher triggered by notification")
			d.Check(ctx)
		}
	}
}

// Check delivers every due notification and advances it to its following fire time
func (d *Dispatcher) Check(ctx context.Context) {
	now := d.now()
	due, err := d.source.ListDue(ctx, now)
	if err != nil {
		d.logger.Error("Failed to list due notifications", zap.Error(err))
		return
	}

	for _, n := range due {
		if !d.deliver(ctx, n, now) {
			continue
		}

		next, err := n.FollowingFire(now, d.loc)
		if err != nil {
			d.logger.Error("Failed to compute next fire time", zap.String("identifier", n.Identifier), zap.Error(err))
			continue
		}
		advanced, err := d.source.MarkFired(ctx, n.Identifier, now, n.NextFireAt, next)
		if err != nil {
			d.logger.Error("Failed to advance notification", zap.String("identifier", n.Identifier), zap.Error(err))
			continue
		}
		if !advanced {
			d.logger.Debug("Notification changed while firing", zap.String("identifier", n.Identifier))
			continue
		}
		d.logger.Debug("Scheduled next fire",
			zap.String("identifier", n.Identifier), zap.String("next", next.In(d.loc).Format("2006-01-02 15:04")))
	}
}

// deliver sends the notification once per fire time. It returns false when the
// notification must stay due so the next check retries it.
func (d *Dispatcher) deliver(ctx context.Context, n *notify.Notification, now time.Time) bool {
	if late := now.Sub(n.NextFireAt); late > d.grace {
		metrics.IncrementDelivery("missed")
		d.logger.Warn("Skipping missed notification",
			zap.String("identifier", n.Identifier), zap.Duration("late", late))
		return true
	}

	key := fmt.Sprintf("%s@%d", n.Identifier, n.NextFireAt.Unix())
	if !d.guard.AcquireOnce(ctx, key, dedupeTTL) {
		metrics.IncrementDelivery("duplicate")
		return true
	}

	r := Reminder{Identifier: n.Identifier, Title: n.Title, Body: n.Body, FireAt: n.NextFireAt}
	if task, _, ok := scheduler.ParseIdentifier(n.Identifier); ok {
		r.Task = &task
	}

	if err := d.sender.SendReminder(ctx, r); err != nil {
		d.guard.Release(ctx, key)
		metrics.IncrementDelivery("failed")
		d.logger.Error("Failed to send reminder", zap.String("identifier", n.Identifier), zap.Error(err))
		return false
	}
	metrics.IncrementDelivery("sent")
	d.logger.Info("Sent reminder", zap.String("identifier", n.Identifier))
	return true
}
