package adherence

import (
	"testing"
	"time"

	"github.com/hannsv/PillGood/internal/models"
)

var kst = time.FixedZone("KST", 9*60*60)

// 2026-10-20 is a Tuesday
func tuesday(hour int) time.Time {
	return time.Date(2026, 10, 20, hour, 0, 0, 0, kst)
}

func weekly(t *testing.T, days ...models.Weekday) models.Recurrence {
	t.Helper()
	r, err := models.Weekly(days...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func keys(ks ...models.TaskKey) KeySet {
	set := make(KeySet)
	for _, k := range ks {
		set.Add(k)
	}
	return set
}

func TestClockIsTuesday(t *testing.T) {
	if wd := tuesday(10).Weekday(); wd != time.Tuesday {
		t.Fatalf("fixture weekday = %s", wd)
	}
}

func TestDoseGroupsFrom(t *testing.T) {
	mon := weekly(t, models.Monday)
	stored := []*models.GroupWithSchedules{
		{
			PillGroup: models.PillGroup{GroupID: 1, Title: "A"},
			Schedules: []models.Schedule{
				{Slot: models.SlotDinner, Days: mon, IsActive: true},
				{Slot: models.SlotMorning, Days: mon, IsActive: false},
			},
		},
		{
			PillGroup: models.PillGroup{GroupID: 2, Title: "B"},
			Schedules: []models.Schedule{{Slot: models.SlotLunch, Days: mon, IsActive: false}},
		},
	}

	got := DoseGroupsFrom(stored)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if !got[0].Active || len(got[0].Slots) != 1 || got[0].Slots[0] != models.SlotDinner {
		t.Errorf("group A = %+v", got[0])
	}
	if !got[0].Days.Equal(mon) {
		t.Errorf("group A days = %s", got[0].Days)
	}
	if got[1].Active || len(got[1].Slots) != 0 {
		t.Errorf("group B = %+v", got[1])
	}
}

func TestPendingTasks(t *testing.T) {
	groups := []DoseGroup{
		{GroupID: 1, Title: "Daily", Slots: []models.Slot{models.SlotBedtime, models.SlotMorning}, Days: models.Daily(), Active: true},
		{GroupID: 2, Title: "Monday", Slots: []models.Slot{models.SlotMorning}, Days: weekly(t, models.Monday), Active: true},
		{GroupID: 3, Title: "Tuesday", Slots: []models.Slot{models.SlotLunch}, Days: weekly(t, models.Tuesday, models.Friday), Active: true},
		{GroupID: 4, Title: "Inactive", Slots: []models.Slot{models.SlotMorning}, Days: models.Daily(), Active: false},
	}

	tests := []struct {
		name      string
		completed KeySet
		want      []models.TaskKey
	}{
		{
			name:      "nothing completed",
			completed: keys(),
			want: []models.TaskKey{
				{GroupID: 1, Slot: models.SlotMorning},
				{GroupID: 3, Slot: models.SlotLunch},
				{GroupID: 1, Slot: models.SlotBedtime},
			},
		},
		{
			name:      "morning completed",
			completed: keys(models.TaskKey{GroupID: 1, Slot: models.SlotMorning}),
			want: []models.TaskKey{
				{GroupID: 3, Slot: models.SlotLunch},
				{GroupID: 1, Slot: models.SlotBedtime},
			},
		},
		{
			name: "all completed",
			completed: keys(
				models.TaskKey{GroupID: 1, Slot: models.SlotMorning},
				models.TaskKey{GroupID: 1, Slot: models.SlotBedtime},
				models.TaskKey{GroupID: 3, Slot: models.SlotLunch},
			),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PendingTasks(groups, tt.completed, tuesday(8))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].Key() != tt.want[i] {
					t.Errorf("task %d = %v, want %v", i, got[i].Key(), tt.want[i])
				}
			}
		})
	}
}

func TestNextPendingTaskSlotOrder(t *testing.T) {
	groups := []DoseGroup{
		{GroupID: 1, Title: "Late", Slots: []models.Slot{models.SlotBedtime}, Days: models.Daily(), Active: true},
		{GroupID: 2, Title: "Early", Slots: []models.Slot{models.SlotMorning}, Days: models.Daily(), Active: true},
	}

	next := NextPendingTask(groups, keys(), tuesday(23))
	if next == nil || next.GroupID != 2 || next.Slot != models.SlotMorning {
		t.Fatalf("next = %+v, want Early morning", next)
	}
}

func TestNextPendingTaskExclusions(t *testing.T) {
	groups := []DoseGroup{
		{GroupID: 1, Slots: []models.Slot{models.SlotMorning}, Days: models.Daily(), Active: false},
		{GroupID: 2, Slots: []models.Slot{models.SlotMorning}, Days: weekly(t, models.Wednesday), Active: true},
		{GroupID: 3, Slots: []models.Slot{models.SlotMorning}, Days: models.Daily(), Active: true},
	}
	completed := keys(models.TaskKey{GroupID: 3, Slot: models.SlotMorning})

	if next := NextPendingTask(groups, completed, tuesday(9)); next != nil {
		t.Errorf("next = %+v, want none", next)
	}
}

func TestHasAnyPillDueToday(t *testing.T) {
	tests := []struct {
		name  string
		group DoseGroup
		want  bool
	}{
		{"daily", DoseGroup{Slots: []models.Slot{models.SlotLunch}, Days: models.Daily(), Active: true}, true},
		{"monday only on tuesday", DoseGroup{Slots: []models.Slot{models.SlotLunch}, Days: weekly(t, models.Monday), Active: true}, false},
		{"tuesday", DoseGroup{Slots: []models.Slot{models.SlotLunch}, Days: weekly(t, models.Tuesday), Active: true}, true},
		{"inactive", DoseGroup{Slots: []models.Slot{models.SlotLunch}, Days: models.Daily(), Active: false}, false},
		{"no slots", DoseGroup{Days: models.Daily(), Active: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasAnyPillDueToday([]DoseGroup{tt.group}, tuesday(12)); got != tt.want {
				t.Errorf("HasAnyPillDueToday = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasAnyPillDueTodayEveryWeekday(t *testing.T) {
	g := DoseGroup{Slots: []models.Slot{models.SlotMorning}, Days: models.Daily(), Active: true}
	for d := 0; d < 7; d++ {
		now := tuesday(9).AddDate(0, 0, d)
		if !HasAnyPillDueToday([]DoseGroup{g}, now) {
			t.Errorf("daily group not due on %s", now.Weekday())
		}
	}
}

func TestGroupCompletion(t *testing.T) {
	groups := []DoseGroup{
		{GroupID: 1, Title: "Half", Slots: []models.Slot{models.SlotMorning, models.SlotDinner}, Days: models.Daily(), Active: true},
		{GroupID: 2, Title: "Done", Slots: []models.Slot{models.SlotLunch}, Days: models.Daily(), Active: true},
		{GroupID: 3, Title: "Monday", Slots: []models.Slot{models.SlotLunch}, Days: weekly(t, models.Monday), Active: true},
		{GroupID: 4, Title: "Off", Slots: nil, Days: models.Daily(), Active: false},
	}
	completed := keys(
		models.TaskKey{GroupID: 1, Slot: models.SlotMorning},
		models.TaskKey{GroupID: 2, Slot: models.SlotLunch},
	)

	got := GroupCompletion(groups, completed, tuesday(15))
	want := []GroupStatus{
		{GroupID: 1, Title: "Half", Status: StatusPending, Done: 1, Total: 2},
		{GroupID: 2, Title: "Done", Status: StatusCompleted, Done: 1, Total: 1},
		{GroupID: 3, Title: "Monday", Status: StatusNotDue},
		{GroupID: 4, Title: "Off", Status: StatusInactive},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d statuses", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("status %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
