package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TestReminder is the reminder sent on demand to check that delivery works
func TestReminder(now time.Time) Reminder {
	return Reminder{
		Identifier: "test",
		Title:      "🔔 알림 테스트",
		Body:       "알림이 정상적으로 동작하고 있어요.",
		FireAt:     now,
	}
}

// LogSender delivers reminders to the log. Used when no chat is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendReminder(_ context.Context, r Reminder) error {
	fields := []zap.Field{
		zap.String("identifier", r.Identifier),
		zap.String("title", r.Title),
		zap.String("body", r.Body),
		zap.Time("fire_at", r.FireAt),
	}
	if r.Task != nil {
		fields = append(fields, zap.String("task", r.Task.String()))
	}
	s.logger.Info("Reminder", fields...)
	return nil
}
