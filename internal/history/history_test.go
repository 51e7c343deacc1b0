package history

import (
	"context"
	"testing"
	"time"

	"daylist/store"
	"daylist/store/sqlite"
)

// mustReader builds a Reader over a seeded archive:
//
//	2026-08-25: "Water plants"
//	2026-08-27: "Ship release" (desc "cut the tag"), "Team lunch"
func mustReader(t *testing.T) (*Reader, context.Context) {
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

	seed := []store.HistoryEntry{
		{Date: "2026-08-25", Tasks: []store.Task{archivedTask("Water plants", "", "2026-08-25")}},
		{Date: "2026-08-27", Tasks: []store.Task{
			archivedTask("Ship release", "cut the tag", "2026-08-27"),
			archivedTask("Team lunch", "", "2026-08-27"),
		}},
	}
	for _, entry := range seed {
		if err := db.SaveHistoryEntry(ctx, entry); err != nil {
			t.Fatalf("SaveHistoryEntry error: %v", err)
		}
	}
	return New(db), ctx
}

func archivedTask(title, description, dateKey string) store.Task {
	done, _ := time.ParseInLocation(store.DateKeyFormat, dateKey, time.Local)
	at := done.Add(15 * time.Hour)
	return store.Task{
		ID:          store.GenerateID(),
		Title:       title,
		Description: description,
		Priority:    store.PriorityMedium,
		Completed:   true,
		CreatedAt:   done,
		CompletedAt: &at,
	}
}

func TestEntriesMostRecentFirst(t *testing.T) {
	r, ctx := mustReader(t)

	entries, err := r.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Entries returned %d, want 2", len(entries))
	}
	if entries[0].Date != "2026-08-27" || entries[1].Date != "2026-08-25" {
		t.Errorf("order = [%s, %s], want most recent first", entries[0].Date, entries[1].Date)
	}
}

func TestSearch(t *testing.T) {
	r, ctx := mustReader(t)

	tests := []struct {
		name      string
		query     string
		wantDates []string
		wantTasks int // total tasks across matched entries
	}{
		{"empty returns everything", "", []string{"2026-08-27", "2026-08-25"}, 3},
		{"title match, case-insensitive", "SHIP", []string{"2026-08-27"}, 1},
		{"description match", "tag", []string{"2026-08-27"}, 1},
		{"raw date key keeps whole day", "2026-08-27", []string{"2026-08-27"}, 2},
		{"date label keeps whole day", "25 aug", []string{"2026-08-25"}, 1},
		{"no match", "zzz", nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Search(ctx, tc.query)
			if err != nil {
				t.Fatalf("Search error: %v", err)
			}
			if len(got) != len(tc.wantDates) {
				t.Fatalf("Search(%q) returned %d entries, want %d", tc.query, len(got), len(tc.wantDates))
			}
			total := 0
			for i, entry := range got {
				if entry.Date != tc.wantDates[i] {
					t.Errorf("entry %d date = %s, want %s", i, entry.Date, tc.wantDates[i])
				}
				total += len(entry.Tasks)
			}
			if total != tc.wantTasks {
				t.Errorf("Search(%q) matched %d tasks, want %d", tc.query, total, tc.wantTasks)
			}
		})
	}
}

func TestStats(t *testing.T) {
	r, ctx := mustReader(t)

	stats, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Days != 2 || stats.Tasks != 3 {
		t.Errorf("Stats = %+v, want 2 days / 3 tasks", stats)
	}
}

func TestClear(t *testing.T) {
	r, ctx := mustReader(t)

	if err := r.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	stats, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Days != 0 || stats.Tasks != 0 {
		t.Errorf("archive not empty after Clear: %+v", stats)
	}
}

func TestLabel(t *testing.T) {
	if got := Label("2026-08-28"); got != "Fri, 28 Aug 2026" {
		t.Errorf("Label = %q, want %q", got, "Fri, 28 Aug 2026")
	}
	// Unparseable keys pass through untouched.
	if got := Label("garbage"); got != "garbage" {
		t.Errorf("Label(garbage) = %q", got)
	}
}
