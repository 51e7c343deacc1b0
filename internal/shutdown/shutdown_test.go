package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitRunsCleanupsInLIFOOrder(t *testing.T) {
	m := NewManager()

	var order []string
	m.RegisterCleanup("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	m.RegisterCleanup("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	m.Shutdown()
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait error: %v", err)
	}

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("cleanup order = %v, want [second first]", order)
	}
}

func TestCleanupErrorDoesNotStopTheRest(t *testing.T) {
	m := NewManager()

	ran := false
	m.RegisterCleanup("runs anyway", func(ctx context.Context) error {
		ran = true
		return nil
	})
	m.RegisterCleanup("fails", func(ctx context.Context) error {
		return errors.New("boom")
	})

	m.Shutdown()
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if !ran {
		t.Error("a failing cleanup must not skip the remaining ones")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	m := NewManager()

	if m.IsShutdown() {
		t.Error("fresh manager should not report shutdown")
	}
	m.Shutdown()
	m.Shutdown()
	if !m.IsShutdown() {
		t.Error("IsShutdown should be true after Shutdown")
	}

	select {
	case <-m.Context().Done():
	default:
		t.Error("Context should be cancelled after Shutdown")
	}
}

func TestWaitTimesOut(t *testing.T) {
	m := NewManager()
	m.RegisterCleanup("hangs", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	m.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want DeadlineExceeded", err)
	}
}
