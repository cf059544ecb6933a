package notify

import (
	"context"
	"sync/atomic"
)

// Permission is a switch that grants or denies scheduling notifications
type Permission struct {
	granted atomic.Bool
}

func NewPermission(granted bool) *Permission {
	p := &Permission{}
	p.granted.Store(granted)
	return p
}

func (p *Permission) Granted() bool {
	return p.granted.Load()
}

func (p *Permission) Set(granted bool) {
	p.granted.Store(granted)
}

// Guarded wraps a gateway so registrations fail with ErrPermissionDenied while
// permission is not granted. Cancel and list always pass through, so stale
// notifications can still be wiped.
type Guarded struct {
	Gateway
	permission *Permission
}

func WithPermission(gw Gateway, permission *Permission) *Guarded {
	return &Guarded{Gateway: gw, permission: permission}
}

func (g *Guarded) ScheduleDaily(ctx context.Context, identifier string, hour, minute int, title, body string) error {
	if !g.permission.Granted() {
		return ErrPermissionDenied
	}
	return g.Gateway.ScheduleDaily(ctx, identifier, hour, minute, title, body)
}

func (g *Guarded) ScheduleWeekly(ctx context.Context, identifier string, weekday, hour, minute int, title, body string) error {
	if !g.permission.Granted() {
		return ErrPermissionDenied
	}
	return g.Gateway.ScheduleWeekly(ctx, identifier, weekday, hour, minute, title, body)
}
