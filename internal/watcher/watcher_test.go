package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor polls until fn returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, fn func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if fn() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fn()
}

func TestWatcherFiresOnDatabaseWrite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "daylist.db")
	if err := os.WriteFile(dbPath, []byte("initial"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	var fired int32
	w, err := New(&Config{
		Path:     dbPath,
		Debounce: 20 * time.Millisecond,
		OnChange: func() { atomic.AddInt32(&fired, 1) },
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(w.Stop)

	if err := w.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if err := os.WriteFile(dbPath, []byte("changed"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&fired) > 0 }) {
		t.Fatal("OnChange never fired for a database write")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "daylist.db")
	if err := os.WriteFile(dbPath, []byte("x"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	var fired int32
	w, err := New(&Config{
		Path:     dbPath,
		Debounce: 20 * time.Millisecond,
		OnChange: func() { atomic.AddInt32(&fired, 1) },
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(w.Stop)
	if err := w.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("y"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Error("OnChange fired for an unrelated file")
	}
}

func TestWatcherBatchesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "daylist.db")
	if err := os.WriteFile(dbPath, []byte("x"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	var fired int32
	w, err := New(&Config{
		Path:     dbPath,
		Debounce: 100 * time.Millisecond,
		OnChange: func() { atomic.AddInt32(&fired, 1) },
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(w.Stop)
	if err := w.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	// A burst like SQLite's commit sequence: main file plus sidecars.
	for i := 0; i < 5; i++ {
		_ = os.WriteFile(dbPath, []byte{byte(i)}, 0644)
		_ = os.WriteFile(dbPath+"-wal", []byte{byte(i)}, 0644)
		time.Sleep(10 * time.Millisecond)
	}

	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&fired) > 0 }) {
		t.Fatal("OnChange never fired")
	}
	time.Sleep(300 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n > 2 {
		t.Errorf("OnChange fired %d times for one burst, want coalescing", n)
	}
}

func TestStoppedWatcherCannotRestart(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&Config{Path: filepath.Join(dir, "daylist.db")})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	w.Stop()
	w.Stop() // idempotent
	if err := w.Start(); err == nil {
		t.Error("Start after Stop should fail")
	}
}

func TestStartFailsForMissingDirectory(t *testing.T) {
	w, err := New(&Config{Path: "/definitely/not/a/real/dir/daylist.db"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(w.Stop)
	if err := w.Start(); err == nil {
		t.Error("Start should fail when the parent directory does not exist")
	}
}
