package progress_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fluentpal/tutor/backend/internal/model/progress"
	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
	progressservice "github.com/fluentpal/tutor/backend/internal/service/progress"
)

type fakeCounter struct {
	mu    sync.Mutex
	count int
}

func (f *fakeCounter) CountUserMessages(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, nil
}

func (f *fakeCounter) inc() {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func firstWords() []progress.Mission {
	return []progress.Mission{{ID: "first-words", XPReward: 50, ConditionType: progress.ConditionMessageCount, ConditionValue: 5}}
}

func TestRecordTurnBasics(t *testing.T) {
	store := progressservice.NewMemoryStore()
	clk := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	updater := progressservice.NewUpdater(store, &fakeCounter{}, progressservice.WithClock(clk.now), progressservice.WithCatalog(nil))
	ctx := context.Background()

	if err := updater.RecordTurn(ctx, "alice", nil); err != nil {
		t.Fatalf("RecordTurn err: %v", err)
	}

	p, err := store.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetProfile err: %v", err)
	}
	if p.XP != 10 || p.TotalMinutes != 0.5 || p.Streak != 1 || p.Level != 1 {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.FluencyScore != 0 {
		t.Fatal("fluency must not change without assessment")
	}
}

func TestRecordTurnStreakAndFluency(t *testing.T) {
	store := progressservice.NewMemoryStore()
	clk := &clock{t: time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)}
	updater := progressservice.NewUpdater(store, &fakeCounter{}, progressservice.WithClock(clk.now), progressservice.WithCatalog(nil))
	ctx := context.Background()

	_ = updater.RecordTurn(ctx, "alice", &speechmodel.PronunciationAssessment{Fluency: 80})
	clk.t = clk.t.Add(3 * time.Hour) // next day
	_ = updater.RecordTurn(ctx, "alice", &speechmodel.PronunciationAssessment{Fluency: 20})
	clk.t = clk.t.Add(time.Hour) // same day
	_ = updater.RecordTurn(ctx, "alice", nil)

	p, _ := store.GetProfile(ctx, "alice")
	if p.Streak != 2 {
		t.Fatalf("expected streak 2, got %d", p.Streak)
	}
	if p.FluencyScore != 62 {
		t.Fatalf("expected fluency 62, got %d", p.FluencyScore)
	}

	clk.t = clk.t.Add(72 * time.Hour)
	_ = updater.RecordTurn(ctx, "alice", nil)
	p, _ = store.GetProfile(ctx, "alice")
	if p.Streak != 1 {
		t.Fatalf("expected streak reset to 1, got %d", p.Streak)
	}
}

func TestMissionCompletesOnce(t *testing.T) {
	store := progressservice.NewMemoryStore()
	counter := &fakeCounter{}
	updater := progressservice.NewUpdater(store, counter, progressservice.WithCatalog(firstWords()))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		counter.inc()
		if err := updater.RecordTurn(ctx, "alice", nil); err != nil {
			t.Fatalf("RecordTurn err: %v", err)
		}
	}

	p, _ := store.GetProfile(ctx, "alice")
	if p.XP != 100 || p.Level != 2 {
		t.Fatalf("expected 5 turns + reward = 100 xp at level 2, got %+v", p)
	}

	missions, _ := store.ListUserMissions(ctx, "alice")
	if len(missions) != 1 || !missions[0].Completed || missions[0].CompletedAt == nil {
		t.Fatalf("mission not completed: %+v", missions)
	}

	for i := 0; i < 3; i++ {
		counter.inc()
		_ = updater.RecordTurn(ctx, "alice", nil)
	}
	p, _ = store.GetProfile(ctx, "alice")
	if p.XP != 130 {
		t.Fatalf("reward must not be granted twice, xp=%d", p.XP)
	}

	before, _ := store.GetProfile(ctx, "alice")
	saved, awarded, err := store.SaveProgress(ctx, before, []progressservice.Completion{{MissionID: "first-words", XPReward: 50}}, time.Now())
	if err != nil || len(awarded) != 0 || saved.XP != before.XP {
		t.Fatalf("completing twice must be a no-op, got xp=%d awarded=%v err=%v", saved.XP, awarded, err)
	}
	missions, _ = store.ListUserMissions(ctx, "alice")
	if !missions[0].Completed {
		t.Fatal("completed flag must stay set")
	}
}

func TestMissionProgressTracked(t *testing.T) {
	store := progressservice.NewMemoryStore()
	counter := &fakeCounter{count: 2}
	updater := progressservice.NewUpdater(store, counter, progressservice.WithCatalog(firstWords()))
	ctx := context.Background()

	_ = updater.RecordTurn(ctx, "alice", nil)

	summary, err := updater.Summary(ctx, "alice")
	if err != nil {
		t.Fatalf("Summary err: %v", err)
	}
	if len(summary.Missions) != 1 || summary.Missions[0].Progress != 2 || summary.Missions[0].Completed {
		t.Fatalf("unexpected mission state: %+v", summary.Missions)
	}
	if summary.Profile.GlobalScore != progress.GlobalScore(10, 1, 1) {
		t.Fatalf("global score not recomputed on read: %d", summary.Profile.GlobalScore)
	}
}

func TestSummaryForNewUser(t *testing.T) {
	updater := progressservice.NewUpdater(progressservice.NewMemoryStore(), nil)

	summary, err := updater.Summary(context.Background(), "newbie")
	if err != nil {
		t.Fatalf("Summary err: %v", err)
	}
	if summary.Profile.Level != 1 || summary.Profile.XP != 0 {
		t.Fatalf("unexpected default profile: %+v", summary.Profile)
	}
	if len(summary.Missions) != len(progress.SeedMissions()) {
		t.Fatalf("seed missions not assigned: %d", len(summary.Missions))
	}
}

func TestAddProgress(t *testing.T) {
	updater := progressservice.NewUpdater(progressservice.NewMemoryStore(), nil, progressservice.WithCatalog(nil))

	p, err := updater.AddProgress(context.Background(), "alice", 120, 3)
	if err != nil {
		t.Fatalf("AddProgress err: %v", err)
	}
	if p.XP != 120 || p.Level != 2 || p.TotalMinutes != 3 || p.Streak != 1 {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

type failingStore struct {
	*progressservice.MemoryStore
	failures int
}

func (f *failingStore) SaveProgress(ctx context.Context, p progress.Profile, c []progressservice.Completion, at time.Time) (progress.Profile, []string, error) {
	if f.failures > 0 {
		f.failures--
		return progress.Profile{}, nil, errors.New("db down")
	}
	return f.MemoryStore.SaveProgress(ctx, p, c, at)
}

func TestRecordTurnSurfacesStoreErrors(t *testing.T) {
	updater := progressservice.NewUpdater(&failingStore{MemoryStore: progressservice.NewMemoryStore(), failures: 1}, nil, progressservice.WithCatalog(nil))

	if err := updater.RecordTurn(context.Background(), "alice", nil); err == nil {
		t.Fatal("expected save error")
	}
}

func TestMissionRewardSurvivesFailedSave(t *testing.T) {
	store := &failingStore{MemoryStore: progressservice.NewMemoryStore(), failures: 1}
	updater := progressservice.NewUpdater(store, &fakeCounter{count: 5}, progressservice.WithCatalog(firstWords()))
	ctx := context.Background()

	if err := updater.RecordTurn(ctx, "alice", nil); err == nil {
		t.Fatal("expected save error")
	}
	missions, _ := store.ListUserMissions(ctx, "alice")
	if len(missions) != 1 || missions[0].Completed {
		t.Fatalf("mission must stay open after a failed save: %+v", missions)
	}

	if err := updater.RecordTurn(ctx, "alice", nil); err != nil {
		t.Fatalf("RecordTurn err: %v", err)
	}
	p, _ := store.GetProfile(ctx, "alice")
	if p.XP != 60 {
		t.Fatalf("expected turn xp plus mission reward = 60, got %d", p.XP)
	}
	missions, _ = store.ListUserMissions(ctx, "alice")
	if !missions[0].Completed {
		t.Fatal("mission not completed after successful save")
	}
}

func TestRecordTurnConcurrentSameUser(t *testing.T) {
	store := progressservice.NewMemoryStore()
	updater := progressservice.NewUpdater(store, nil, progressservice.WithCatalog(nil))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = updater.RecordTurn(ctx, "alice", nil)
		}()
	}
	wg.Wait()

	p, _ := store.GetProfile(ctx, "alice")
	if p.XP != 200 {
		t.Fatalf("lost updates: xp=%d", p.XP)
	}
}
