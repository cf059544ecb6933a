package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/hannsv/PillGood/internal/database"
	"github.com/hannsv/PillGood/internal/models"
	"go.uber.org/zap"
)

var kst = time.FixedZone("KST", 9*60*60)

// openTestDB connects to TEST_DATABASE_URI, migrates it and empties every table.
// Tests in this package share the database and must not run in parallel.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	uri := os.Getenv("TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("TEST_DATABASE_URI not set")
	}
	ctx := context.Background()
	db, err := database.New(ctx, uri, zap.NewNop())
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := db.Pool.Exec(ctx,
		`TRUNCATE pill_groups, pills, schedules, history, app_settings, scheduled_notifications RESTART IDENTITY CASCADE`,
	); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func insertVitamins(t *testing.T, s *Store, days models.Recurrence) *models.GroupWithSchedules {
	t.Helper()
	g, err := s.InsertGroup(context.Background(), &models.NewGroup{
		Title:       "Vitamins",
		Description: "daily pack",
		Pills:       []models.Pill{{Name: "Vitamin C", Company: "Acme"}, {Name: "Vitamin D"}},
		Slots:       []models.Slot{models.SlotMorning, models.SlotDinner, models.SlotMorning},
		Days:        days,
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("InsertGroup: %v", err)
	}
	return g
}

func TestInsertAndGetGroup(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	days, _ := models.Weekly(models.Monday, models.Thursday)

	inserted := insertVitamins(t, s, days)
	if inserted.GroupID == 0 || len(inserted.Schedules) != 2 || len(inserted.Pills) != 2 {
		t.Fatalf("inserted = %+v", inserted)
	}

	got, err := s.GetGroup(ctx, inserted.GroupID)
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if got.Title != "Vitamins" || got.Description != "daily pack" || got.CreatedAt.IsZero() {
		t.Errorf("group = %+v", got.PillGroup)
	}
	if len(got.Pills) != 2 || got.Pills[0].Company != "Acme" || *got.Pills[1].GroupID != inserted.GroupID {
		t.Errorf("pills = %+v", got.Pills)
	}
	if len(got.Schedules) != 2 {
		t.Fatalf("schedules = %+v", got.Schedules)
	}
	for _, sc := range got.Schedules {
		if !sc.Days.Equal(days) || !sc.IsActive || sc.Time != nil {
			t.Errorf("schedule = %+v", sc)
		}
	}

	if _, err := s.GetGroup(ctx, 999); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetGroup(999) err = %v, want ErrNotFound", err)
	}
}

func TestDailyRecurrenceStoredAsEmptyArray(t *testing.T) {
	db := openTestDB(t)
	s := NewStore(db)
	ctx := context.Background()
	g := insertVitamins(t, s, models.Daily())

	var raw string
	if err := db.Pool.QueryRow(ctx, `SELECT days FROM schedules WHERE group_id = $1 LIMIT 1`, g.GroupID).Scan(&raw); err != nil {
		t.Fatal(err)
	}
	if raw != "[]" {
		t.Errorf("days column = %q, want []", raw)
	}

	sc, err := s.FindSchedule(ctx, g.GroupID, models.SlotDinner)
	if err != nil {
		t.Fatal(err)
	}
	if !sc.Days.IsDaily() {
		t.Errorf("days = %s, want daily", sc.Days)
	}
	if _, err := s.FindSchedule(ctx, g.GroupID, models.SlotLunch); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("FindSchedule(lunch) = %v, want ErrNotFound", err)
	}
}

func TestListGroupsWithSchedules(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	a := insertVitamins(t, s, models.Daily())
	b, err := s.InsertGroup(ctx, &models.NewGroup{Title: "Iron", Slots: []models.Slot{models.SlotLunch}, Days: models.Daily()})
	if err != nil {
		t.Fatal(err)
	}

	groups, err := s.ListGroupsWithSchedules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0].GroupID != a.GroupID || groups[1].GroupID != b.GroupID {
		t.Fatalf("groups = %+v", groups)
	}
	if len(groups[0].Schedules) != 2 || len(groups[1].Schedules) != 1 {
		t.Errorf("schedule counts = %d, %d", len(groups[0].Schedules), len(groups[1].Schedules))
	}
	if groups[1].IsActive() {
		t.Error("group registered inactive reports active")
	}
}

func TestUpdates(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	g := insertVitamins(t, s, models.Daily())

	if err := s.UpdateGroupTitle(ctx, g.GroupID, "Morning pack"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateScheduleActive(ctx, g.GroupID, false); err != nil {
		t.Fatal(err)
	}
	override := "07:30"
	if err := s.UpdateScheduleTime(ctx, g.GroupID, models.SlotMorning, &override); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetGroup(ctx, g.GroupID)
	if got.Title != "Morning pack" || got.IsActive() {
		t.Errorf("after updates = %+v", got)
	}
	morning, _ := got.ScheduleFor(models.SlotMorning)
	if morning.Time == nil || *morning.Time != "07:30" {
		t.Errorf("morning time = %v", morning.Time)
	}

	if err := s.UpdateScheduleTime(ctx, g.GroupID, models.SlotMorning, nil); err != nil {
		t.Fatal(err)
	}
	if sc, _ := s.FindSchedule(ctx, g.GroupID, models.SlotMorning); sc.Time != nil {
		t.Errorf("cleared time = %q", *sc.Time)
	}

	if err := s.UpdateGroupTitle(ctx, 999, "x"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("UpdateGroupTitle(999) = %v", err)
	}
	if err := s.UpdateScheduleActive(ctx, 999, true); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("UpdateScheduleActive(999) = %v", err)
	}
	if err := s.UpdateScheduleTime(ctx, g.GroupID, models.SlotLunch, &override); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("UpdateScheduleTime(lunch) = %v", err)
	}
}

func TestInsertHistoryOncePerDay(t *testing.T) {
	db := openTestDB(t)
	s := NewStore(db)
	ctx := context.Background()
	g := insertVitamins(t, s, models.Daily())
	morning, _ := g.ScheduleFor(models.SlotMorning)

	// 00:30 KST is still the previous day in UTC
	at := time.Date(2026, 10, 20, 0, 30, 0, 0, kst)
	first := &models.History{ScheduleID: morning.ScheduleID, TakenAt: at}
	ok, err := s.InsertHistory(ctx, first, models.LocalDate(at, kst))
	if err != nil || !ok || first.HistoryID == 0 {
		t.Fatalf("first insert = %v, %v, id %d", ok, err, first.HistoryID)
	}

	var takenOn string
	if err := db.Pool.QueryRow(ctx, `SELECT taken_on::text FROM history WHERE history_id = $1`, first.HistoryID).Scan(&takenOn); err != nil {
		t.Fatal(err)
	}
	if takenOn != "2026-10-20" {
		t.Errorf("taken_on = %s, want 2026-10-20", takenOn)
	}

	second := &models.History{ScheduleID: morning.ScheduleID, TakenAt: at.Add(time.Hour), IsSkipped: true}
	ok, err = s.InsertHistory(ctx, second, models.LocalDate(at, kst))
	if err != nil || ok || second.HistoryID != 0 {
		t.Fatalf("second insert on same day = %v, %v, id %d; want ignored", ok, err, second.HistoryID)
	}

	next := at.AddDate(0, 0, 1)
	ok, err = s.InsertHistory(ctx, &models.History{ScheduleID: morning.ScheduleID, TakenAt: next}, models.LocalDate(next, kst))
	if err != nil || !ok {
		t.Fatalf("insert on next day = %v, %v", ok, err)
	}

	if _, err := s.InsertHistory(ctx, &models.History{ScheduleID: morning.ScheduleID, TakenAt: at}, "20-10-2026"); err == nil {
		t.Error("malformed taken_on accepted")
	}

	entries, err := s.ListHistorySince(ctx, models.StartOfDay(at, kst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].GroupTitle != "Vitamins" || entries[0].Slot != models.SlotMorning || entries[0].GroupID != g.GroupID {
		t.Errorf("entry = %+v", entries[0])
	}
	if !entries[0].TakenAt.Equal(at) || entries[0].IsSkipped {
		t.Errorf("first entry = %+v", entries[0])
	}

	newest, _ := s.ListHistory(ctx, 1)
	if len(newest) != 1 || !newest[0].TakenAt.Equal(next) {
		t.Errorf("newest = %+v", newest)
	}
}

func TestDeleteGroupCascades(t *testing.T) {
	db := openTestDB(t)
	s := NewStore(db)
	ctx := context.Background()
	g := insertVitamins(t, s, models.Daily())
	morning, _ := g.ScheduleFor(models.SlotMorning)
	at := time.Now()
	if _, err := s.InsertHistory(ctx, &models.History{ScheduleID: morning.ScheduleID, TakenAt: at}, models.LocalDate(at, kst)); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteGroup(ctx, g.GroupID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	for _, table := range []string{"schedules", "history", "pills"} {
		var n int
		if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s rows after delete = %d", table, n)
		}
	}
	if err := s.DeleteGroup(ctx, g.GroupID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second DeleteGroup = %v", err)
	}
}

func TestSettings(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	v, err := s.GetSetting(ctx, "time_morning", "9")
	if err != nil || v != "9" {
		t.Fatalf("default = %q, %v", v, err)
	}
	if err := s.SetSetting(ctx, "time_morning", "7"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting(ctx, "time_morning", "8"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetSetting(ctx, "time_morning", "9"); v != "8" {
		t.Errorf("value = %q, want 8", v)
	}
}
