package store

import (
	"testing"
	"time"
)

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	for _, p := range []Priority{"", "urgent", "LOW"} {
		if p.Valid() {
			t.Errorf("%q should be invalid", p)
		}
	}
}

func TestDateKey(t *testing.T) {
	in := time.Date(2026, 8, 27, 23, 59, 59, 0, time.Local)
	if got := DateKey(in); got != "2026-08-27" {
		t.Errorf("DateKey = %q, want 2026-08-27", got)
	}
}

func TestDayStart(t *testing.T) {
	in := time.Date(2026, 8, 28, 17, 30, 45, 123, time.Local)
	want := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)
	if got := DayStart(in); !got.Equal(want) {
		t.Errorf("DayStart = %v, want %v", got, want)
	}
	// Midnight is its own day start.
	if got := DayStart(want); !got.Equal(want) {
		t.Errorf("DayStart(midnight) = %v, want %v", got, want)
	}
}

func TestGenerateIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if id == "" {
			t.Fatal("empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestCloneIsDeep(t *testing.T) {
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)
	orig := Task{
		ID:          GenerateID(),
		Title:       "Original",
		Priority:    PriorityHigh,
		Completed:   true,
		CreatedAt:   at.Add(-time.Hour),
		CompletedAt: &at,
		SubTasks: []SubTask{
			{ID: GenerateID(), Text: "item", Completed: true, CreatedAt: at, CompletedAt: &at, Order: 0},
		},
	}

	c := orig.Clone()
	c.Title = "Changed"
	*c.CompletedAt = at.Add(time.Hour)
	c.SubTasks[0].Text = "changed item"
	*c.SubTasks[0].CompletedAt = at.Add(time.Hour)

	if orig.Title != "Original" {
		t.Error("Clone shares the title")
	}
	if !orig.CompletedAt.Equal(at) {
		t.Error("Clone shares the CompletedAt pointer")
	}
	if orig.SubTasks[0].Text != "item" {
		t.Error("Clone shares the subtask slice")
	}
	if !orig.SubTasks[0].CompletedAt.Equal(at) {
		t.Error("Clone shares the subtask CompletedAt pointer")
	}
}

func TestCloneTasks(t *testing.T) {
	tasks := []Task{
		{ID: GenerateID(), Title: "a", Priority: PriorityLow, CreatedAt: time.Now()},
		{ID: GenerateID(), Title: "b", Priority: PriorityLow, CreatedAt: time.Now()},
	}
	out := CloneTasks(tasks)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	out[0].Title = "mutated"
	if tasks[0].Title != "a" {
		t.Error("CloneTasks shares elements with the source")
	}
}
