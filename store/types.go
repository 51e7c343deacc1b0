// Package store defines the task data model and the durable storage
// interface shared by the in-memory task store, the maintenance job and
// the history reader.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a to-do item in the active list or the archive.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	SubTasks    []SubTask  `json:"subTasks,omitempty"`
}

// SubTask is a checklist item owned by exactly one task. Order is the
// dense zero-based position within the parent's subtask sequence.
type SubTask struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Order       int        `json:"order"`
}

// HistoryEntry is an archive bucket: all tasks completed on one calendar
// day. Date is the local calendar date in YYYY-MM-DD form. Archived task
// snapshots are immutable; an entry's task list only ever grows.
type HistoryEntry struct {
	Date  string `json:"date"`
	Tasks []Task `json:"tasks"`
}

// Meta holds store bookkeeping.
type Meta struct {
	LastMaintenanceRun time.Time `json:"lastMaintenanceRun"`
}

// TrashItem holds a just-deleted task during the undo grace window.
// OriginalIndex is the position in the active list to restore to.
type TrashItem struct {
	Snapshot      Task      `json:"snapshot"`
	OriginalIndex int       `json:"originalIndex"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// DateKeyFormat is the calendar-date layout used for history keys.
const DateKeyFormat = "2006-01-02"

// DateKey returns the local calendar date key for t.
func DateKey(t time.Time) string {
	return t.Local().Format(DateKeyFormat)
}

// DayStart returns local midnight of the day containing t.
func DayStart(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GenerateID generates a unique identifier using UUID v4.
func GenerateID() string {
	return uuid.New().String()
}

// Clone returns a deep copy of the task, including its subtasks.
func (t Task) Clone() Task {
	c := t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.SubTasks != nil {
		c.SubTasks = make([]SubTask, len(t.SubTasks))
		for i, st := range t.SubTasks {
			c.SubTasks[i] = st
			if st.CompletedAt != nil {
				at := *st.CompletedAt
				c.SubTasks[i].CompletedAt = &at
			}
		}
	}
	return c
}

// CloneTasks deep-copies a task slice.
func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
