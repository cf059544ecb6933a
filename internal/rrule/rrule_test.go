package rrule

import (
	"testing"
	"time"

	"github.com/hannsv/PillGood/internal/models"
)

var kst = time.FixedZone("KST", 9*60*60)

func TestBuilderString(t *testing.T) {
	weekly, err := WeeklyAt(models.Monday, 22, 0)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		b    *RRuleBuilder
		want string
	}{
		{"daily", DailyAt(9, 0), "FREQ=DAILY;BYHOUR=9;BYMINUTE=0"},
		{"weekly", weekly, "FREQ=WEEKLY;BYDAY=MO;BYHOUR=22;BYMINUTE=0"},
	}
	for _, tt := range tests {
		if got := tt.b.String(); got != tt.want {
			t.Errorf("%s: %q, want %q", tt.name, got, tt.want)
		}
	}

	if _, err := WeeklyAt(models.Weekday(7), 9, 0); err == nil {
		t.Error("WeeklyAt accepted an invalid weekday")
	}
}

func TestBuilderNext(t *testing.T) {
	// Tuesday
	tue := func(hour, minute int) time.Time { return time.Date(2026, 10, 20, hour, minute, 0, 0, kst) }
	weekly, _ := WeeklyAt(models.Monday, 22, 0)
	sameDay, _ := WeeklyAt(models.Tuesday, 13, 0)

	tests := []struct {
		name  string
		b     *RRuleBuilder
		after time.Time
		want  time.Time
	}{
		{"daily later today", DailyAt(9, 0), tue(8, 0), tue(9, 0)},
		{"daily at fire time moves to tomorrow", DailyAt(9, 0), tue(9, 0), time.Date(2026, 10, 21, 9, 0, 0, 0, kst)},
		{"daily with minute", DailyAt(7, 30), tue(8, 0), time.Date(2026, 10, 21, 7, 30, 0, 0, kst)},
		{"weekly next monday", weekly, tue(8, 0), time.Date(2026, 10, 26, 22, 0, 0, 0, kst)},
		{"weekly same day", sameDay, tue(8, 0), tue(13, 0)},
		{"weekly same day passed", sameDay, tue(14, 0), time.Date(2026, 10, 27, 13, 0, 0, 0, kst)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.b.Next(tt.after, kst)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Next = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextOccurrence(t *testing.T) {
	first := time.Date(2026, 10, 20, 9, 0, 0, 0, kst)
	next, err := NextOccurrence("RRULE:FREQ=DAILY;BYHOUR=9;BYMINUTE=0", first, first, kst)
	if err != nil {
		t.Fatal(err)
	}
	if next == nil || !next.Equal(first.AddDate(0, 0, 1)) {
		t.Errorf("next = %v", next)
	}

	if _, err := NextOccurrence("FREQ=SOMETIMES", first, first, kst); err == nil {
		t.Error("invalid rule parsed")
	}
}

func TestHumanReadableKorean(t *testing.T) {
	tests := []struct {
		rule string
		want string
	}{
		{"FREQ=DAILY;BYHOUR=9;BYMINUTE=0", "매일 9시"},
		{"FREQ=DAILY;BYHOUR=7;BYMINUTE=30", "매일 7시 30분"},
		{"FREQ=WEEKLY;BYDAY=MO;BYHOUR=22;BYMINUTE=0", "매주 월 22시"},
		{"", "한 번"},
	}
	for _, tt := range tests {
		if got := HumanReadableKorean(tt.rule); got != tt.want {
			t.Errorf("HumanReadableKorean(%q) = %q, want %q", tt.rule, got, tt.want)
		}
	}
}
