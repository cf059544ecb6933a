package adherence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hannsv/PillGood/internal/models"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu      sync.Mutex
	groups  []*models.GroupWithSchedules
	history []models.HistoryEntry
	days    map[int64]map[string]bool // schedule id -> taken_on dates
	nextID  int64
	failGet error
}

func newFakeStore(groups ...*models.GroupWithSchedules) *fakeStore {
	return &fakeStore{groups: groups, days: make(map[int64]map[string]bool)}
}

func (s *fakeStore) ListGroupsWithSchedules(context.Context) ([]*models.GroupWithSchedules, error) {
	return s.groups, nil
}

func (s *fakeStore) ListHistorySince(_ context.Context, since time.Time) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	var out []models.HistoryEntry
	for _, h := range s.history {
		if !h.TakenAt.Before(since) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *fakeStore) FindSchedule(_ context.Context, groupID int64, slot models.Slot) (*models.Schedule, error) {
	for _, g := range s.groups {
		if g.GroupID != groupID {
			continue
		}
		if sched, ok := g.ScheduleFor(slot); ok {
			return sched, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *fakeStore) InsertHistory(_ context.Context, h *models.History, takenOn string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.days[h.ScheduleID][takenOn] {
		return false, nil
	}
	if s.days[h.ScheduleID] == nil {
		s.days[h.ScheduleID] = make(map[string]bool)
	}
	s.days[h.ScheduleID][takenOn] = true

	s.nextID++
	h.HistoryID = s.nextID
	entry := models.HistoryEntry{HistoryID: h.HistoryID, ScheduleID: h.ScheduleID, TakenAt: h.TakenAt, IsSkipped: h.IsSkipped}
	for _, g := range s.groups {
		for _, sc := range g.Schedules {
			if sc.ScheduleID == h.ScheduleID {
				entry.GroupID, entry.GroupTitle, entry.Slot = g.GroupID, g.Title, sc.Slot
			}
		}
	}
	s.history = append(s.history, entry)
	return true, nil
}

func (s *fakeStore) ListHistory(_ context.Context, limit int) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.HistoryEntry
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.history[i])
	}
	return out, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

func vitamins() *models.GroupWithSchedules {
	return &models.GroupWithSchedules{
		PillGroup: models.PillGroup{GroupID: 1, Title: "Vitamins"},
		Schedules: []models.Schedule{
			{ScheduleID: 10, GroupID: 1, Slot: models.SlotMorning, Days: models.Daily(), IsActive: true},
			{ScheduleID: 11, GroupID: 1, Slot: models.SlotDinner, Days: models.Daily(), IsActive: true},
		},
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newEngine(store Store, pub *recordingPublisher, c *clock) *Engine {
	return New(store, pub, zap.NewNop(), kst, WithClock(c.now))
}

func TestVitaminsScenario(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(vitamins())
	pub := &recordingPublisher{}
	e := newEngine(store, pub, &clock{t: tuesday(8)})

	snap := e.Today(ctx)
	if snap.Next == nil || snap.Next.Title != "Vitamins" || snap.Next.Slot != models.SlotMorning {
		t.Fatalf("next = %+v, want Vitamins morning", snap.Next)
	}

	if ok, err := e.CompleteTask(ctx, 1, models.SlotMorning); err != nil || !ok {
		t.Fatalf("CompleteTask morning = %v, %v", ok, err)
	}
	snap = e.Today(ctx)
	if snap.Next == nil || snap.Next.Slot != models.SlotDinner {
		t.Fatalf("next = %+v, want Vitamins dinner", snap.Next)
	}

	if ok, err := e.CompleteTask(ctx, 1, models.SlotDinner); err != nil || !ok {
		t.Fatalf("CompleteTask dinner = %v, %v", ok, err)
	}
	snap = e.Today(ctx)
	if snap.Next != nil {
		t.Errorf("next = %+v, want none", snap.Next)
	}
	if !snap.HasAnyDue {
		t.Error("HasAnyDue must stay true after completing every task")
	}
	if len(snap.Groups) != 1 || snap.Groups[0].Status != StatusCompleted {
		t.Errorf("groups = %+v", snap.Groups)
	}
	if pub.count() != 2 {
		t.Errorf("published %d events, want 2", pub.count())
	}
}

func TestCompleteTaskTwiceIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(vitamins())
	pub := &recordingPublisher{}
	e := newEngine(store, pub, &clock{t: tuesday(9)})

	if _, err := e.CompleteTask(ctx, 1, models.SlotMorning); err != nil {
		t.Fatal(err)
	}
	before := e.TodayCompletedTaskKeys(ctx).Strings()

	ok, err := e.CompleteTask(ctx, 1, models.SlotMorning)
	if err != nil || ok {
		t.Fatalf("second CompleteTask = %v, %v; want no-op", ok, err)
	}
	after := e.TodayCompletedTaskKeys(ctx).Strings()

	if len(before) != 1 || len(after) != 1 || before[0] != after[0] {
		t.Errorf("keys before %v, after %v", before, after)
	}
	if len(store.history) != 1 {
		t.Errorf("history rows = %d, want 1", len(store.history))
	}
	if pub.count() != 1 {
		t.Errorf("published %d events, want 1", pub.count())
	}
}

func TestCompleteTaskConcurrent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(vitamins())
	e := newEngine(store, &recordingPublisher{}, &clock{t: tuesday(9)})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.CompleteTask(ctx, 1, models.SlotDinner)
		}()
	}
	wg.Wait()

	if len(store.history) != 1 {
		t.Errorf("history rows = %d, want 1", len(store.history))
	}
}

func TestCompleteTaskNewDay(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(vitamins())
	c := &clock{t: tuesday(23)}
	e := newEngine(store, &recordingPublisher{}, c)

	if _, err := e.CompleteTask(ctx, 1, models.SlotBedtime); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CompleteTask(ctx, 1, models.SlotMorning); err != nil {
		t.Fatal(err)
	}

	c.t = tuesday(23).Add(2 * time.Hour) // Wednesday 01:00
	if keys := e.TodayCompletedTaskKeys(ctx); len(keys) != 0 {
		t.Fatalf("keys after midnight = %v", keys.Strings())
	}
	ok, err := e.CompleteTask(ctx, 1, models.SlotMorning)
	if err != nil || !ok {
		t.Errorf("CompleteTask on the next day = %v, %v", ok, err)
	}
}

func TestCompleteTaskMissingSchedule(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(vitamins())
	pub := &recordingPublisher{}
	e := newEngine(store, pub, &clock{t: tuesday(9)})

	ok, err := e.CompleteTask(ctx, 1, models.SlotLunch)
	if err != nil || ok {
		t.Fatalf("CompleteTask = %v, %v; want no-op", ok, err)
	}
	ok, err = e.CompleteTask(ctx, 42, models.SlotMorning)
	if err != nil || ok {
		t.Fatalf("CompleteTask on missing group = %v, %v; want no-op", ok, err)
	}
	if pub.count() != 0 || len(store.history) != 0 {
		t.Error("stale reference must not write or publish")
	}
}

func TestCompleteTaskInvalidSlot(t *testing.T) {
	e := newEngine(newFakeStore(vitamins()), &recordingPublisher{}, &clock{t: tuesday(9)})
	_, err := e.CompleteTask(context.Background(), 1, models.Slot("brunch"))
	if !errors.Is(err, models.ErrInvalidSlot) {
		t.Errorf("err = %v, want ErrInvalidSlot", err)
	}
}

func TestSkipTaskResolvesTask(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(vitamins())
	e := newEngine(store, &recordingPublisher{}, &clock{t: tuesday(9)})

	if ok, err := e.SkipTask(ctx, 1, models.SlotMorning); err != nil || !ok {
		t.Fatalf("SkipTask = %v, %v", ok, err)
	}
	if !store.history[0].IsSkipped {
		t.Error("history row must be marked skipped")
	}
	if ok, _ := e.CompleteTask(ctx, 1, models.SlotMorning); ok {
		t.Error("a skipped task must not be completed again the same day")
	}
	snap := e.Today(ctx)
	if snap.Next == nil || snap.Next.Slot != models.SlotDinner {
		t.Errorf("next = %+v, want dinner", snap.Next)
	}
}

func TestTodayCompletedTaskKeysStorageError(t *testing.T) {
	store := newFakeStore(vitamins())
	store.failGet = errors.New("disk full")
	e := newEngine(store, &recordingPublisher{}, &clock{t: tuesday(9)})

	if keys := e.TodayCompletedTaskKeys(context.Background()); len(keys) != 0 {
		t.Errorf("keys = %v, want empty", keys.Strings())
	}
}

func TestHistoryLimit(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(vitamins())
	c := &clock{t: tuesday(9)}
	e := newEngine(store, &recordingPublisher{}, c)

	for d := 0; d < 3; d++ {
		c.t = tuesday(9).AddDate(0, 0, d)
		if _, err := e.CompleteTask(ctx, 1, models.SlotMorning); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := e.History(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if !entries[0].TakenAt.After(entries[1].TakenAt) {
		t.Error("history must be newest first")
	}
	if entries[0].GroupTitle != "Vitamins" {
		t.Errorf("group title = %q", entries[0].GroupTitle)
	}

	all, _ := e.History(ctx, 0)
	if len(all) != 3 {
		t.Errorf("default limit returned %d rows", len(all))
	}
}
