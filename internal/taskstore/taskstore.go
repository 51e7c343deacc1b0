// Package taskstore is the authoritative in-memory task collection.
// All mutation goes through one Store instance, which serializes writers,
// applies the completion cascade rules, keeps the delete/undo trash, and
// persists state to durable storage with a debounced write.
package taskstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"daylist/internal/utils"
	"daylist/store"
)

const (
	// DefaultGraceWindow is how long a deleted task can be restored.
	DefaultGraceWindow = 3 * time.Second

	// DefaultDebounce is the quiet period that coalesces rapid
	// successive mutations into one durable write.
	DefaultDebounce = 200 * time.Millisecond
)

// trashItem holds a just-deleted task during the grace window.
type trashItem struct {
	snapshot  store.Task
	index     int
	expiresAt time.Time
}

// Store owns the active task list. Mutations are synchronous and
// sequential; persistence runs asynchronously behind a debounce timer so
// a mutation is visible to readers immediately without blocking on I/O.
type Store struct {
	st    store.Store
	log   *utils.Logger
	now   func() time.Time
	grace time.Duration
	delay time.Duration

	mu      sync.Mutex
	tasks   []store.Task
	trash   map[string]trashItem
	timers  map[string]*time.Timer
	saveTmr *time.Timer
	dirty   bool
	loaded  bool
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithGraceWindow overrides the delete/undo grace window.
func WithGraceWindow(d time.Duration) Option {
	return func(s *Store) { s.grace = d }
}

// WithDebounce overrides the persistence debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.delay = d }
}

// WithClock overrides the time source. Tests use this to pin the clock
// across day boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store backed by st. Call Load before using it.
func New(st store.Store, opts ...Option) *Store {
	s := &Store{
		st:     st,
		log:    utils.GetLogger(),
		now:    time.Now,
		grace:  DefaultGraceWindow,
		delay:  DefaultDebounce,
		trash:  map[string]trashItem{},
		timers: map[string]*time.Timer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load initializes durable storage, reads the active list and re-arms
// any trash items that persisted across a restart: unexpired items get a
// finalize timer for the remaining duration, expired ones are finalized
// immediately.
func (s *Store) Load(ctx context.Context) error {
	if err := s.st.Init(ctx); err != nil {
		return utils.ErrStorageUnavailable(err)
	}
	tasks, err := s.st.GetAllTasks(ctx)
	if err != nil {
		return utils.ErrStorageUnavailable(err)
	}

	s.mu.Lock()
	s.tasks = tasks
	s.normalizeLocked()
	s.loaded = true
	s.mu.Unlock()

	items, err := s.st.GetTrash(ctx)
	if err != nil {
		// Not fatal: the session works without undo state.
		s.log.Warn("failed to read pending deletions: %v", err)
		return nil
	}
	now := s.now()
	for _, item := range items {
		remaining := item.ExpiresAt.Sub(now)
		if remaining <= 0 {
			if err := s.st.DeleteTrashItem(ctx, item.Snapshot.ID); err != nil {
				s.log.Warn("failed to drop expired deletion %s: %v", item.Snapshot.ID, err)
			}
			continue
		}
		id := item.Snapshot.ID
		s.mu.Lock()
		s.trash[id] = trashItem{snapshot: item.Snapshot, index: item.OriginalIndex, expiresAt: item.ExpiresAt}
		s.timers[id] = time.AfterFunc(remaining, func() { s.FinalizeDelete(id) })
		s.mu.Unlock()
	}
	return nil
}

// normalizeLocked repairs completed/completedAt mismatches so the
// invariant completed == (completedAt != nil) holds for everything in
// memory. Mismatches only appear when the database was edited by hand.
func (s *Store) normalizeLocked() {
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.Completed && t.CompletedAt == nil {
			s.log.Warn("task %s completed without timestamp, using creation time", t.ID)
			at := t.CreatedAt
			t.CompletedAt = &at
		}
		if !t.Completed && t.CompletedAt != nil {
			s.log.Warn("task %s has stray completion timestamp, clearing", t.ID)
			t.CompletedAt = nil
		}
		t.Priority = utils.NormalizePriority(t.Priority)
	}
}

// Loaded reports whether Load completed.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Reload re-reads the active list from durable storage, discarding the
// in-memory copy. Used after a maintenance run and by watch mode when
// another process wrote the database.
func (s *Store) Reload(ctx context.Context) error {
	tasks, err := s.st.GetAllTasks(ctx)
	if err != nil {
		return utils.ErrStorageUnavailable(err)
	}
	s.mu.Lock()
	s.tasks = tasks
	s.normalizeLocked()
	s.mu.Unlock()
	return nil
}

// AddTask creates a task with the given title, optional description and
// priority (empty means medium) and prepends it to the active list.
func (s *Store) AddTask(title, description string, priority store.Priority) (store.Task, error) {
	if err := utils.ValidateTitle(title); err != nil {
		return store.Task{}, err
	}
	if priority == "" {
		priority = store.PriorityMedium
	}
	priority = utils.NormalizePriority(priority)

	task := store.Task{
		ID:          store.GenerateID(),
		Title:       title,
		Description: description,
		Priority:    priority,
		CreatedAt:   s.now(),
		SubTasks:    []store.SubTask{},
	}

	s.mu.Lock()
	s.tasks = append([]store.Task{task}, s.tasks...)
	s.scheduleSaveLocked()
	s.mu.Unlock()

	return task.Clone(), nil
}

// TaskUpdate holds the optional fields of an edit. Nil fields are left
// untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Priority    *store.Priority
}

// UpdateTask merges upd into the task with the given id. An absent id is
// a silent no-op.
func (s *Store) UpdateTask(id string, upd TaskUpdate) error {
	if upd.Title != nil {
		if err := utils.ValidateTitle(*upd.Title); err != nil {
			return err
		}
	}
	if upd.Priority != nil && !upd.Priority.Valid() {
		return utils.ErrInvalidPriority(string(*upd.Priority))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		s.log.Debug("update for unknown task %s ignored", id)
		return nil
	}
	t := &s.tasks[i]
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	s.scheduleSaveLocked()
	return nil
}

// ToggleTask flips a task's completion state. Completing a task with
// incomplete subtasks force-completes every one of them at the same
// instant as the parent; subtasks that were already done keep their own
// timestamps. Un-completing never cascades. An absent id is a no-op.
func (s *Store) ToggleTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		s.log.Debug("toggle for unknown task %s ignored", id)
		return nil
	}
	t := &s.tasks[i]

	if t.Completed {
		t.Completed = false
		t.CompletedAt = nil
		s.scheduleSaveLocked()
		return nil
	}

	now := s.now()
	t.Completed = true
	t.CompletedAt = &now
	for j := range t.SubTasks {
		st := &t.SubTasks[j]
		if !st.Completed {
			st.Completed = true
			st.CompletedAt = &now
		}
	}
	s.scheduleSaveLocked()
	return nil
}

// ToggleSubTask flips a subtask's completion state. When the flip leaves
// every subtask completed and the parent is not yet completed, the
// parent completes too, stamped with the latest subtask completion
// instant rather than the wall clock, so the parent records when the
// checklist actually finished. Unchecking never un-completes the parent.
func (s *Store) ToggleSubTask(taskID, subTaskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(taskID)
	if i < 0 {
		s.log.Debug("subtask toggle for unknown task %s ignored", taskID)
		return nil
	}
	t := &s.tasks[i]

	found := false
	for j := range t.SubTasks {
		st := &t.SubTasks[j]
		if st.ID != subTaskID {
			continue
		}
		found = true
		if st.Completed {
			st.Completed = false
			st.CompletedAt = nil
		} else {
			now := s.now()
			st.Completed = true
			st.CompletedAt = &now
		}
		break
	}
	if !found {
		s.log.Debug("toggle for unknown subtask %s ignored", subTaskID)
		return nil
	}

	if !t.Completed && len(t.SubTasks) > 0 && allSubTasksCompleted(t.SubTasks) {
		t.Completed = true
		t.CompletedAt = maxCompletedAt(t.SubTasks)
		if t.CompletedAt == nil {
			now := s.now()
			t.CompletedAt = &now
		}
	}
	s.scheduleSaveLocked()
	return nil
}

// AddSubTask appends a checklist item to a task.
func (s *Store) AddSubTask(taskID, text string) (store.SubTask, error) {
	if err := utils.ValidateTitle(text); err != nil {
		return store.SubTask{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(taskID)
	if i < 0 {
		s.log.Debug("subtask add for unknown task %s ignored", taskID)
		return store.SubTask{}, nil
	}
	t := &s.tasks[i]
	st := store.SubTask{
		ID:        store.GenerateID(),
		Text:      text,
		CreatedAt: s.now(),
		Order:     len(t.SubTasks),
	}
	t.SubTasks = append(t.SubTasks, st)
	s.scheduleSaveLocked()
	return st, nil
}

// ReorderSubTasks moves the subtask at oldIndex to newIndex, shifting
// the others, and reassigns every Order field to its new position.
// Out-of-range oldIndex is a no-op; newIndex is clamped.
func (s *Store) ReorderSubTasks(taskID string, oldIndex, newIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(taskID)
	if i < 0 {
		return nil
	}
	t := &s.tasks[i]
	n := len(t.SubTasks)
	if oldIndex < 0 || oldIndex >= n {
		return nil
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= n {
		newIndex = n - 1
	}
	if oldIndex == newIndex {
		return nil
	}

	moved := t.SubTasks[oldIndex]
	rest := append(append([]store.SubTask{}, t.SubTasks[:oldIndex]...), t.SubTasks[oldIndex+1:]...)
	out := append(append(append([]store.SubTask{}, rest[:newIndex]...), moved), rest[newIndex:]...)
	for j := range out {
		out[j].Order = j
	}
	t.SubTasks = out
	s.scheduleSaveLocked()
	return nil
}

// DeleteSubTask removes a checklist item permanently (no undo) and
// reindexes the remaining subtasks so Order stays dense.
func (s *Store) DeleteSubTask(taskID, subTaskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(taskID)
	if i < 0 {
		return nil
	}
	t := &s.tasks[i]
	out := t.SubTasks[:0]
	for _, st := range t.SubTasks {
		if st.ID != subTaskID {
			out = append(out, st)
		}
	}
	for j := range out {
		out[j].Order = j
	}
	t.SubTasks = out
	s.scheduleSaveLocked()
	return nil
}

// RequestDeleteTask optimistically removes a task from the active list,
// parks a snapshot in the trash for the grace window and persists both
// immediately. The deletion is durable right away; undo restores the
// snapshot as a fresh re-insertion. An absent id is a no-op.
func (s *Store) RequestDeleteTask(id string) error {
	s.mu.Lock()
	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.log.Debug("delete for unknown task %s ignored", id)
		return nil
	}
	item := trashItem{
		snapshot:  s.tasks[i].Clone(),
		index:     i,
		expiresAt: s.now().Add(s.grace),
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.trash[id] = item
	s.timers[id] = time.AfterFunc(s.grace, func() { s.FinalizeDelete(id) })
	s.mu.Unlock()

	ctx := context.Background()
	if err := s.st.SaveTrashItem(ctx, store.TrashItem{
		Snapshot:      item.snapshot,
		OriginalIndex: item.index,
		ExpiresAt:     item.expiresAt,
	}); err != nil {
		s.log.Warn("failed to persist pending deletion: %v", err)
	}
	s.persistNow(ctx)
	return nil
}

// UndoDelete restores a deleted task at its original index (clamped if
// the list shrank) if the grace window has not elapsed. Returns
// ErrUndoExpired otherwise.
func (s *Store) UndoDelete(id string) error {
	s.mu.Lock()
	item, ok := s.trash[id]
	if !ok {
		s.mu.Unlock()
		return utils.ErrNothingToUndo()
	}
	if tmr, ok := s.timers[id]; ok {
		tmr.Stop()
		delete(s.timers, id)
	}
	delete(s.trash, id)

	i := item.index
	if i > len(s.tasks) {
		i = len(s.tasks)
	}
	s.tasks = append(s.tasks[:i], append([]store.Task{item.snapshot}, s.tasks[i:]...)...)
	s.mu.Unlock()

	ctx := context.Background()
	if err := s.st.DeleteTrashItem(ctx, id); err != nil {
		s.log.Warn("failed to clear restored deletion: %v", err)
	}
	s.persistNow(ctx)
	return nil
}

// LatestTrashed returns the id of the most recently deleted task still
// inside its grace window, or "" when the trash is empty.
func (s *Store) LatestTrashed() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	var latest time.Time
	for tid, item := range s.trash {
		if id == "" || item.expiresAt.After(latest) {
			id = tid
			latest = item.expiresAt
		}
	}
	return id
}

// FinalizeDelete discards a trash item permanently. Invoked by timer
// expiry; idempotent, calling it twice is harmless.
func (s *Store) FinalizeDelete(id string) {
	s.mu.Lock()
	if tmr, ok := s.timers[id]; ok {
		tmr.Stop()
		delete(s.timers, id)
	}
	_, had := s.trash[id]
	delete(s.trash, id)
	s.mu.Unlock()

	if had {
		if err := s.st.DeleteTrashItem(context.Background(), id); err != nil {
			s.log.Warn("failed to drop finalized deletion %s: %v", id, err)
		}
	}
}

// PendingTrash returns the trash items still inside their grace window,
// most recent first.
func (s *Store) PendingTrash() []store.TrashItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]store.TrashItem, 0, len(s.trash))
	for _, item := range s.trash {
		items = append(items, store.TrashItem{
			Snapshot:      item.snapshot.Clone(),
			OriginalIndex: item.index,
			ExpiresAt:     item.expiresAt,
		})
	}
	sort.Slice(items, func(a, b int) bool {
		return items[a].ExpiresAt.After(items[b].ExpiresAt)
	})
	return items
}

// Tasks returns a deep copy of the active list in insertion order
// (newest first).
func (s *Store) Tasks() []store.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.CloneTasks(s.tasks)
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (store.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfLocked(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return store.Task{}, false
}

// Incomplete returns the tasks still to do.
func (s *Store) Incomplete() []store.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Task
	for _, t := range s.tasks {
		if !t.Completed {
			out = append(out, t.Clone())
		}
	}
	return out
}

// CompletedToday returns the tasks completed since local midnight.
func (s *Store) CompletedToday() []store.Task {
	dayStart := store.DayStart(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Task
	for _, t := range s.tasks {
		if t.Completed && t.CompletedAt != nil && !t.CompletedAt.Before(dayStart) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Resolve finds a task by id, exact title (case-insensitive) or, failing
// that, a unique case-insensitive title substring.
func (s *Store) Resolve(query string) (store.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.ID == query {
			return t.Clone(), true
		}
	}
	for _, t := range s.tasks {
		if strings.EqualFold(t.Title, query) {
			return t.Clone(), true
		}
	}
	lower := strings.ToLower(query)
	match := -1
	for i, t := range s.tasks {
		if strings.Contains(strings.ToLower(t.Title), lower) {
			if match >= 0 {
				return store.Task{}, false // ambiguous
			}
			match = i
		}
	}
	if match >= 0 {
		return s.tasks[match].Clone(), true
	}
	return store.Task{}, false
}

// scheduleSaveLocked arms (or re-arms) the debounced persistence timer.
// Callers hold s.mu.
func (s *Store) scheduleSaveLocked() {
	s.dirty = true
	if s.closed {
		return
	}
	if s.saveTmr != nil {
		s.saveTmr.Reset(s.delay)
		return
	}
	s.saveTmr = time.AfterFunc(s.delay, func() {
		s.persistNow(context.Background())
	})
}

// persistNow writes the active list out synchronously. A failed write
// logs a warning and leaves the store dirty so the next mutation or
// Flush retries it.
func (s *Store) persistNow(ctx context.Context) {
	s.mu.Lock()
	if s.saveTmr != nil {
		s.saveTmr.Stop()
		s.saveTmr = nil
	}
	snapshot := store.CloneTasks(s.tasks)
	s.dirty = false
	s.mu.Unlock()

	if err := s.st.SaveTasks(ctx, snapshot); err != nil {
		s.log.Warn("%v", utils.ErrStorageUnavailable(err))
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
	}
}

// Flush forces any pending debounced write out synchronously. The CLI
// calls it before exit so one-shot invocations never lose the debounce
// window.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := s.dirty || s.saveTmr != nil
	if s.saveTmr != nil {
		s.saveTmr.Stop()
		s.saveTmr = nil
	}
	snapshot := store.CloneTasks(s.tasks)
	s.dirty = false
	s.mu.Unlock()

	if !pending {
		return nil
	}
	if err := s.st.SaveTasks(ctx, snapshot); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return utils.ErrStorageUnavailable(err)
	}
	return nil
}

// Close cancels all outstanding timers and flushes pending state. The
// underlying durable store is closed by whoever opened it.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	for id, tmr := range s.timers {
		tmr.Stop()
		delete(s.timers, id)
	}
	if s.saveTmr != nil {
		s.saveTmr.Stop()
		s.saveTmr = nil
	}
	s.mu.Unlock()

	return s.Flush(context.Background())
}

// indexOfLocked returns the position of id in the active list, or -1.
// Callers hold s.mu.
func (s *Store) indexOfLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func allSubTasksCompleted(subs []store.SubTask) bool {
	for _, st := range subs {
		if !st.Completed {
			return false
		}
	}
	return true
}

func maxCompletedAt(subs []store.SubTask) *time.Time {
	var max *time.Time
	for _, st := range subs {
		if st.CompletedAt == nil {
			continue
		}
		if max == nil || st.CompletedAt.After(*max) {
			at := *st.CompletedAt
			max = &at
		}
	}
	return max
}
