// Package history is the read-only query layer over the archive log.
package history

import (
	"context"
	"sort"
	"strings"
	"time"

	"daylist/store"
)

// LabelFormat is how a history date renders for display and filtering,
// e.g. "Mon, 02 Jan 2006".
const LabelFormat = "Mon, 02 Jan 2006"

// Reader serves archived tasks back for browsing. It never mutates
// state except for Clear, which empties the whole archive.
type Reader struct {
	st store.Store
}

// New creates a Reader over st.
func New(st store.Store) *Reader {
	return &Reader{st: st}
}

// Entries returns all archive entries sorted by date descending, most
// recent day first.
func (r *Reader) Entries(ctx context.Context) ([]store.HistoryEntry, error) {
	entries, err := r.st.GetHistory(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Date > entries[b].Date
	})
	return entries, nil
}

// Search filters entries with a case-insensitive substring match against
// the formatted date label, task titles and task descriptions. A match
// on the date keeps the whole day; otherwise only the matching tasks of
// the day are returned. An empty query returns everything.
func (r *Reader) Search(ctx context.Context, query string) ([]store.HistoryEntry, error) {
	entries, err := r.Entries(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return entries, nil
	}

	var out []store.HistoryEntry
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(Label(entry.Date)), query) ||
			strings.Contains(entry.Date, query) {
			out = append(out, entry)
			continue
		}
		var tasks []store.Task
		for _, t := range entry.Tasks {
			if strings.Contains(strings.ToLower(t.Title), query) ||
				strings.Contains(strings.ToLower(t.Description), query) {
				tasks = append(tasks, t)
			}
		}
		if len(tasks) > 0 {
			out = append(out, store.HistoryEntry{Date: entry.Date, Tasks: tasks})
		}
	}
	return out, nil
}

// Stats holds aggregate archive counts for display.
type Stats struct {
	Days  int
	Tasks int
}

// Stats returns the number of archived days and tasks.
func (r *Reader) Stats(ctx context.Context) (Stats, error) {
	entries, err := r.st.GetHistory(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Days: len(entries)}
	for _, entry := range entries {
		st.Tasks += len(entry.Tasks)
	}
	return st, nil
}

// Clear empties the entire archive. Destructive and unrecoverable.
func (r *Reader) Clear(ctx context.Context) error {
	return r.st.ClearHistory(ctx)
}

// Label formats a YYYY-MM-DD date key for display. Unparseable keys are
// returned as-is.
func Label(dateKey string) string {
	t, err := time.ParseInLocation(store.DateKeyFormat, dateKey, time.Local)
	if err != nil {
		return dateKey
	}
	return t.Format(LabelFormat)
}
