package store

import (
	"context"
	"time"
)

// Store is the durable storage interface the core depends on. It holds
// four logical tables: the active task list (full-replace semantics),
// the date-keyed history log (merge-by-date, append-only), pending trash
// items, and bookkeeping metadata.
//
// All methods may fail with a storage error; callers treat such failures
// as non-fatal to the in-memory session.
type Store interface {
	// Init prepares the underlying storage (creates schema, opens files).
	Init(ctx context.Context) error

	// GetAllTasks returns the current active task list.
	GetAllTasks(ctx context.Context) ([]Task, error)
	// SaveTasks replaces the entire active task list.
	SaveTasks(ctx context.Context, tasks []Task) error

	// GetHistory returns all archive entries, one per calendar date.
	GetHistory(ctx context.Context) ([]HistoryEntry, error)
	// SaveHistoryEntry merges an entry into the history log. If an entry
	// for the same date already exists its task list is appended to,
	// never overwritten.
	SaveHistoryEntry(ctx context.Context, entry HistoryEntry) error
	// ClearHistory empties the entire history log.
	ClearHistory(ctx context.Context) error

	// Archive applies a maintenance run as a single atomic unit: the
	// trimmed active list replaces the current one, each entry is merged
	// into history, and the last-run timestamp is recorded. Either all
	// of it lands or none of it does.
	Archive(ctx context.Context, remaining []Task, entries []HistoryEntry, lastRun time.Time) error

	// GetTrash returns all pending trash items.
	GetTrash(ctx context.Context) ([]TrashItem, error)
	// SaveTrashItem stores or replaces a pending trash item keyed by the
	// snapshot's task ID.
	SaveTrashItem(ctx context.Context, item TrashItem) error
	// DeleteTrashItem removes a pending trash item. Removing an absent
	// item is not an error.
	DeleteTrashItem(ctx context.Context, taskID string) error

	// GetMeta returns store bookkeeping. A store with no recorded
	// metadata returns a zero Meta, not an error.
	GetMeta(ctx context.Context) (Meta, error)
	// SaveMeta records store bookkeeping.
	SaveMeta(ctx context.Context, meta Meta) error

	// Close releases underlying resources.
	Close() error
}
