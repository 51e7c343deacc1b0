package maintenance

import (
	"context"
	"testing"
	"time"

	"daylist/store"
	"daylist/store/sqlite"
)

// mustOpenStore opens a file-backed store with schema applied.
func mustOpenStore(t *testing.T) (*sqlite.Store, context.Context) {
	t.Helper()
	db, err := sqlite.New(t.TempDir() + "/daylist.db")
	if err != nil {
		t.Fatalf("sqlite.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err := db.Init(ctx); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	return db, ctx
}

// seedTask builds a task completed at the given instant (nil = still open).
func seedTask(title string, completedAt *time.Time) store.Task {
	task := store.Task{
		ID:        store.GenerateID(),
		Title:     title,
		Priority:  store.PriorityMedium,
		CreatedAt: time.Date(2026, 8, 20, 8, 0, 0, 0, time.Local),
	}
	if completedAt != nil {
		task.Completed = true
		task.CompletedAt = completedAt
	}
	return task
}

func TestRunArchivesPriorDays(t *testing.T) {
	db, ctx := mustOpenStore(t)

	now := time.Date(2026, 8, 28, 0, 5, 0, 0, time.Local)
	twoDaysAgo := time.Date(2026, 8, 26, 14, 0, 0, 0, time.Local)
	lastNight := time.Date(2026, 8, 27, 22, 30, 0, 0, time.Local)
	thisMorning := time.Date(2026, 8, 28, 0, 1, 0, 0, time.Local)

	seed := []store.Task{
		seedTask("Old chore", &twoDaysAgo),
		seedTask("Evening win", &lastNight),
		seedTask("After midnight", &thisMorning),
		seedTask("Still open", nil),
	}
	if err := db.SaveTasks(ctx, seed); err != nil {
		t.Fatalf("SaveTasks error: %v", err)
	}

	s := New(db, WithClock(func() time.Time { return now }))
	res, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Archived != 2 {
		t.Errorf("Archived = %d, want 2", res.Archived)
	}
	wantDates := []string{"2026-08-26", "2026-08-27"}
	if len(res.Dates) != 2 || res.Dates[0] != wantDates[0] || res.Dates[1] != wantDates[1] {
		t.Errorf("Dates = %v, want %v", res.Dates, wantDates)
	}

	// Today's completion and the open task remain active.
	tasks, _ := db.GetAllTasks(ctx)
	if len(tasks) != 2 {
		t.Fatalf("active list has %d tasks, want 2", len(tasks))
	}
	for _, task := range tasks {
		if task.Title == "Old chore" || task.Title == "Evening win" {
			t.Errorf("%q should have been archived", task.Title)
		}
	}

	// Each archived task landed under its own completion date.
	history, _ := db.GetHistory(ctx)
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
	byDate := map[string]store.HistoryEntry{}
	for _, e := range history {
		byDate[e.Date] = e
	}
	if e := byDate["2026-08-26"]; len(e.Tasks) != 1 || e.Tasks[0].Title != "Old chore" {
		t.Errorf("2026-08-26 entry = %+v", e)
	}
	if e := byDate["2026-08-27"]; len(e.Tasks) != 1 || e.Tasks[0].Title != "Evening win" {
		t.Errorf("2026-08-27 entry = %+v", e)
	}

	meta, _ := db.GetMeta(ctx)
	if !meta.LastMaintenanceRun.Equal(now) {
		t.Errorf("LastMaintenanceRun = %v, want %v", meta.LastMaintenanceRun, now)
	}
}

func TestRunDayBoundaryIsExclusive(t *testing.T) {
	db, ctx := mustOpenStore(t)

	// One second before midnight archives; midnight itself does not.
	justBefore := time.Date(2026, 8, 27, 23, 59, 59, 0, time.Local)
	atMidnight := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)
	seed := []store.Task{
		seedTask("Before the bell", &justBefore),
		seedTask("On the bell", &atMidnight),
	}
	if err := db.SaveTasks(ctx, seed); err != nil {
		t.Fatalf("SaveTasks error: %v", err)
	}

	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.Local)
	s := New(db, WithClock(func() time.Time { return now }))
	res, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Archived != 1 {
		t.Fatalf("Archived = %d, want 1", res.Archived)
	}

	tasks, _ := db.GetAllTasks(ctx)
	if len(tasks) != 1 || tasks[0].Title != "On the bell" {
		t.Errorf("task completed at midnight must stay active: %+v", tasks)
	}
	history, _ := db.GetHistory(ctx)
	if len(history) != 1 || history[0].Date != "2026-08-27" {
		t.Errorf("history = %+v, want one 2026-08-27 entry", history)
	}
}

func TestRunWithNothingToArchiveStillRecordsMeta(t *testing.T) {
	db, ctx := mustOpenStore(t)

	if err := db.SaveTasks(ctx, []store.Task{seedTask("Open", nil)}); err != nil {
		t.Fatalf("SaveTasks error: %v", err)
	}

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)
	s := New(db, WithClock(func() time.Time { return now }))
	res, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Archived != 0 || len(res.Dates) != 0 {
		t.Errorf("empty run result = %+v", res)
	}

	meta, _ := db.GetMeta(ctx)
	if !meta.LastMaintenanceRun.Equal(now) {
		t.Errorf("empty run must still record its timestamp, got %v", meta.LastMaintenanceRun)
	}
}

func TestRepeatedRunsMergeIntoExistingDates(t *testing.T) {
	db, ctx := mustOpenStore(t)

	yesterday := time.Date(2026, 8, 27, 10, 0, 0, 0, time.Local)
	if err := db.SaveTasks(ctx, []store.Task{seedTask("First batch", &yesterday)}); err != nil {
		t.Fatalf("SaveTasks error: %v", err)
	}

	now := time.Date(2026, 8, 28, 1, 0, 0, 0, time.Local)
	s := New(db, WithClock(func() time.Time { return now }))
	if _, err := s.Run(ctx); err != nil {
		t.Fatalf("first Run error: %v", err)
	}

	// Another task for the same prior day shows up (written by an older
	// replica, say) and the next run folds it into the same entry.
	later := time.Date(2026, 8, 27, 18, 0, 0, 0, time.Local)
	if err := db.SaveTasks(ctx, []store.Task{seedTask("Second batch", &later)}); err != nil {
		t.Fatalf("SaveTasks error: %v", err)
	}
	if _, err := s.Run(ctx); err != nil {
		t.Fatalf("second Run error: %v", err)
	}

	history, _ := db.GetHistory(ctx)
	if len(history) != 1 {
		t.Fatalf("history has %d entries, want 1 merged entry", len(history))
	}
	if len(history[0].Tasks) != 2 {
		t.Errorf("merged entry has %d tasks, want 2", len(history[0].Tasks))
	}
}

func TestRunNotifiesOnArchived(t *testing.T) {
	db, ctx := mustOpenStore(t)

	yesterday := time.Date(2026, 8, 27, 10, 0, 0, 0, time.Local)
	if err := db.SaveTasks(ctx, []store.Task{seedTask("Done", &yesterday)}); err != nil {
		t.Fatalf("SaveTasks error: %v", err)
	}

	notified := 0
	now := time.Date(2026, 8, 28, 1, 0, 0, 0, time.Local)
	s := New(db,
		WithClock(func() time.Time { return now }),
		WithOnArchived(func() { notified++ }),
	)

	if _, err := s.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if notified != 1 {
		t.Errorf("onArchived fired %d times, want 1", notified)
	}

	// A run that archives nothing stays quiet.
	if _, err := s.Run(ctx); err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	if notified != 1 {
		t.Errorf("onArchived fired on an empty run")
	}
}

func TestNextMidnight(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{
			time.Date(2026, 8, 28, 13, 45, 0, 0, time.Local),
			time.Date(2026, 8, 29, 0, 0, 0, 0, time.Local),
		},
		{
			// Exactly at midnight schedules the following one.
			time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local),
			time.Date(2026, 8, 29, 0, 0, 0, 0, time.Local),
		},
		{
			// Month rollover.
			time.Date(2026, 8, 31, 23, 59, 59, 0, time.Local),
			time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local),
		},
	}
	for _, tc := range tests {
		if got := NextMidnight(tc.in); !got.Equal(tc.want) {
			t.Errorf("NextMidnight(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStopCancelsTimer(t *testing.T) {
	db, _ := mustOpenStore(t)

	s := New(db)
	s.Start(context.Background())
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped || s.timer != nil {
		t.Error("Stop should cancel the pending timer")
	}
}
