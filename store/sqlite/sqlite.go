// Package sqlite implements store.Store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"daylist/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) a SQLite database at path. The schema is created
// by Init.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Init creates the database schema if it doesn't exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			priority TEXT NOT NULL DEFAULT 'medium',
			completed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			completed_at TEXT
		);

		CREATE TABLE IF NOT EXISTS subtasks (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			text TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			completed_at TEXT,
			position INTEGER NOT NULL,
			FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_subtasks_task_id ON subtasks(task_id);

		CREATE TABLE IF NOT EXISTS history (
			date_key TEXT NOT NULL,
			task_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_date_key ON history(date_key);

		CREATE TABLE IF NOT EXISTS trash (
			task_id TEXT PRIMARY KEY,
			task_json TEXT NOT NULL,
			original_index INTEGER NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// timeToNullString converts a *time.Time to sql.NullString for storage.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

// parseOptionalTime parses a nullable timestamp string.
func parseOptionalTime(str sql.NullString) *time.Time {
	if str.Valid && str.String != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, str.String); err == nil {
			return &parsed
		}
	}
	return nil
}

// GetAllTasks returns the active task list in stored order, subtasks
// included.
func (s *Store) GetAllTasks(ctx context.Context) ([]store.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, priority, completed, created_at, completed_at
		 FROM tasks ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tasks := []store.Task{}
	index := map[string]int{}
	for rows.Next() {
		var t store.Task
		var completed int
		var createdStr string
		var completedAtStr sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &completed, &createdStr, &completedAtStr); err != nil {
			return nil, err
		}
		t.Completed = completed != 0
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		t.CompletedAt = parseOptionalTime(completedAtStr)
		t.SubTasks = []store.SubTask{}
		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subRows, err := s.db.QueryContext(ctx,
		`SELECT task_id, id, text, completed, created_at, completed_at, position
		 FROM subtasks ORDER BY task_id, position`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = subRows.Close() }()

	for subRows.Next() {
		var taskID string
		var st store.SubTask
		var completed int
		var createdStr string
		var completedAtStr sql.NullString
		if err := subRows.Scan(&taskID, &st.ID, &st.Text, &completed, &createdStr, &completedAtStr, &st.Order); err != nil {
			return nil, err
		}
		st.Completed = completed != 0
		st.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		st.CompletedAt = parseOptionalTime(completedAtStr)
		if i, ok := index[taskID]; ok {
			tasks[i].SubTasks = append(tasks[i].SubTasks, st)
		}
	}
	return tasks, subRows.Err()
}

// saveTasksTx replaces the active task list inside an open transaction.
func saveTasksTx(ctx context.Context, tx *sql.Tx, tasks []store.Task) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM subtasks"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return err
	}

	for pos, t := range tasks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (id, position, title, description, priority, completed, created_at, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, pos, t.Title, t.Description, string(t.Priority), boolToInt(t.Completed),
			t.CreatedAt.Format(time.RFC3339Nano), timeToNullString(t.CompletedAt),
		)
		if err != nil {
			return err
		}
		for _, st := range t.SubTasks {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO subtasks (id, task_id, text, completed, created_at, completed_at, position)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				st.ID, t.ID, st.Text, boolToInt(st.Completed),
				st.CreatedAt.Format(time.RFC3339Nano), timeToNullString(st.CompletedAt), st.Order,
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveTasks replaces the entire active task list in one transaction.
func (s *Store) SaveTasks(ctx context.Context, tasks []store.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := saveTasksTx(ctx, tx, tasks); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetHistory returns all archive entries grouped by date. Within an
// entry, tasks keep their archival order.
func (s *Store) GetHistory(ctx context.Context) ([]store.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT date_key, task_json FROM history ORDER BY date_key, rowid")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := []store.HistoryEntry{}
	index := map[string]int{}
	for rows.Next() {
		var dateKey, taskJSON string
		if err := rows.Scan(&dateKey, &taskJSON); err != nil {
			return nil, err
		}
		var task store.Task
		if err := json.Unmarshal([]byte(taskJSON), &task); err != nil {
			return nil, fmt.Errorf("corrupt history row for %s: %w", dateKey, err)
		}
		i, ok := index[dateKey]
		if !ok {
			i = len(entries)
			index[dateKey] = i
			entries = append(entries, store.HistoryEntry{Date: dateKey})
		}
		entries[i].Tasks = append(entries[i].Tasks, task)
	}
	return entries, rows.Err()
}

// appendHistoryTx appends an entry's tasks as history rows inside an
// open transaction. Rows for the same date accumulate, which gives the
// merge-by-date semantics for free.
func appendHistoryTx(ctx context.Context, tx *sql.Tx, entry store.HistoryEntry) error {
	for _, t := range entry.Tasks {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO history (date_key, task_json) VALUES (?, ?)",
			entry.Date, string(data),
		); err != nil {
			return err
		}
	}
	return nil
}

// SaveHistoryEntry merges an entry into the history log.
func (s *Store) SaveHistoryEntry(ctx context.Context, entry store.HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := appendHistoryTx(ctx, tx, entry); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ClearHistory empties the history log.
func (s *Store) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history")
	return err
}

// Archive applies a maintenance run atomically: the remaining tasks
// replace the active list, each entry is appended to history and the
// last-run timestamp is recorded, all in one transaction.
func (s *Store) Archive(ctx context.Context, remaining []store.Task, entries []store.HistoryEntry, lastRun time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := saveTasksTx(ctx, tx, remaining); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, entry := range entries {
		if err := appendHistoryTx(ctx, tx, entry); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := setMetaTx(ctx, tx, store.Meta{LastMaintenanceRun: lastRun}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetTrash returns all pending trash items.
func (s *Store) GetTrash(ctx context.Context) ([]store.TrashItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT task_json, original_index, expires_at FROM trash")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []store.TrashItem{}
	for rows.Next() {
		var item store.TrashItem
		var taskJSON, expiresStr string
		if err := rows.Scan(&taskJSON, &item.OriginalIndex, &expiresStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(taskJSON), &item.Snapshot); err != nil {
			return nil, fmt.Errorf("corrupt trash row: %w", err)
		}
		item.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresStr)
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveTrashItem stores or replaces a pending trash item.
func (s *Store) SaveTrashItem(ctx context.Context, item store.TrashItem) error {
	data, err := json.Marshal(item.Snapshot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO trash (task_id, task_json, original_index, expires_at)
		 VALUES (?, ?, ?, ?)`,
		item.Snapshot.ID, string(data), item.OriginalIndex,
		item.ExpiresAt.Format(time.RFC3339Nano),
	)
	return err
}

// DeleteTrashItem removes a pending trash item. Idempotent.
func (s *Store) DeleteTrashItem(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM trash WHERE task_id = ?", taskID)
	return err
}

const metaKey = "maintenance"

// setMetaTx records bookkeeping inside an open transaction.
func setMetaTx(ctx context.Context, tx *sql.Tx, meta store.Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		metaKey, string(data),
	)
	return err
}

// GetMeta returns store bookkeeping, or a zero Meta when none recorded.
func (s *Store) GetMeta(ctx context.Context) (store.Meta, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = ?", metaKey).Scan(&value)
	if err == sql.ErrNoRows {
		return store.Meta{}, nil
	}
	if err != nil {
		return store.Meta{}, err
	}

	var meta store.Meta
	if err := json.Unmarshal([]byte(value), &meta); err != nil {
		return store.Meta{}, fmt.Errorf("corrupt meta row: %w", err)
	}
	return meta, nil
}

// SaveMeta records store bookkeeping.
func (s *Store) SaveMeta(ctx context.Context, meta store.Meta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := setMetaTx(ctx, tx, meta); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Verify interface compliance at compile time
var _ store.Store = (*Store)(nil)
