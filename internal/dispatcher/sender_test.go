package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/hannsv/PillGood/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewLogSender(zap.New(core))

	task := models.TaskKey{GroupID: 3, Slot: models.SlotDinner}
	r := Reminder{Identifier: "3_dinner_daily", Title: "💊 저녁 약 드실 시간이에요!", Body: "Iron 챙겨 드셨나요?", FireAt: time.Now(), Task: &task}
	if err := s.SendReminder(context.Background(), r); err != nil {
		t.Fatalf("SendReminder: %v", err)
	}
	if err := s.SendReminder(context.Background(), TestReminder(time.Now())); err != nil {
		t.Fatalf("SendReminder test: %v", err)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["identifier"] != "3_dinner_daily" || fields["task"] != "3_dinner" {
		t.Errorf("fields = %v", fields)
	}
	if _, ok := entries[1].ContextMap()["task"]; ok {
		t.Error("test reminder should carry no task")
	}
}
