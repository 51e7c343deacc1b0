// Package maintenance implements the daily archival job: once per day
// boundary, tasks completed on a prior calendar day are moved out of the
// active list into the date-keyed history log.
package maintenance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"daylist/internal/utils"
	"daylist/store"
)

// Scheduler runs the archival job, either manually through Run or on a
// self-rescheduling timer that fires shortly after each local midnight.
type Scheduler struct {
	st  store.Store
	log *utils.Logger
	now func() time.Time

	// onArchived is invoked after a run that archived at least one task,
	// so the in-memory task store can reload the trimmed active list.
	onArchived func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithOnArchived registers a callback fired after tasks were archived.
func WithOnArchived(fn func()) Option {
	return func(s *Scheduler) { s.onArchived = fn }
}

// New creates a Scheduler over st.
func New(st store.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		st:  st,
		log: utils.GetLogger(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result summarizes a maintenance run.
type Result struct {
	Archived int      // tasks moved to history
	Dates    []string // affected date keys, ascending
}

// Run performs one maintenance pass. Tasks completed before local
// midnight of the current day are grouped by their completion date and
// merged into history; the trimmed active list, the history appends and
// the last-run timestamp land as one atomic unit, so a failure leaves
// the on-disk state exactly as it was read.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	tasks, err := s.st.GetAllTasks(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("maintenance aborted: %w", err)
	}
	meta, err := s.st.GetMeta(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("maintenance aborted: %w", err)
	}
	if !meta.LastMaintenanceRun.IsZero() {
		s.log.Debug("last maintenance run: %s", meta.LastMaintenanceRun.Format(time.RFC3339))
	}

	now := s.now()
	todayStart := store.DayStart(now)

	var remaining []store.Task
	byDate := map[string][]store.Task{}
	for _, t := range tasks {
		if t.Completed && t.CompletedAt != nil && t.CompletedAt.Before(todayStart) {
			key := store.DateKey(*t.CompletedAt)
			byDate[key] = append(byDate[key], t)
			continue
		}
		remaining = append(remaining, t)
	}

	if len(byDate) == 0 {
		if err := s.st.SaveMeta(ctx, store.Meta{LastMaintenanceRun: now}); err != nil {
			s.log.Warn("failed to record maintenance run: %v", err)
		}
		return Result{}, nil
	}

	dates := make([]string, 0, len(byDate))
	for key := range byDate {
		dates = append(dates, key)
	}
	sort.Strings(dates)

	entries := make([]store.HistoryEntry, 0, len(dates))
	archived := 0
	for _, key := range dates {
		entries = append(entries, store.HistoryEntry{Date: key, Tasks: byDate[key]})
		archived += len(byDate[key])
	}

	if err := s.st.Archive(ctx, remaining, entries, now); err != nil {
		return Result{}, fmt.Errorf("maintenance aborted, no tasks archived: %w", err)
	}

	s.log.Debug("archived %d task(s) across %d day(s)", archived, len(dates))
	if s.onArchived != nil {
		s.onArchived()
	}
	return Result{Archived: archived, Dates: dates}, nil
}

// Start runs maintenance immediately and then schedules itself to fire
// again at each local midnight until Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	if _, err := s.Run(ctx); err != nil {
		s.log.Error("%v", err)
	}
	s.scheduleNext(ctx)
}

// scheduleNext arms the timer for the next local midnight.
func (s *Scheduler) scheduleNext(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}

	until := NextMidnight(s.now()).Sub(s.now())
	s.timer = time.AfterFunc(until, func() {
		if _, err := s.Run(ctx); err != nil {
			// Logged and retried at the next boundary or manual run.
			s.log.Error("%v", err)
		}
		s.scheduleNext(ctx)
	})
	s.log.Debug("next maintenance run in %s", until.Round(time.Second))
}

// Stop cancels the pending midnight timer. A run already in flight
// completes normally.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// NextMidnight returns the first local midnight after t.
func NextMidnight(t time.Time) time.Time {
	return store.DayStart(t).AddDate(0, 0, 1)
}
