package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSnapshotStore struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSnapshotStore) RecordDailySnapshot(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 1, nil
}

func (f *fakeSnapshotStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSnapshotter_RunsImmediatelyAndOnInterval(t *testing.T) {
	store := &fakeSnapshotStore{}
	s := NewSnapshotter(SnapshotterConfig{
		Store:    store,
		Interval: 10 * time.Millisecond,
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Start runs one cycle synchronously before the loop takes over.
	if store.callCount() < 1 {
		t.Fatal("Expected an immediate snapshot cycle on start")
	}

	deadline := time.After(2 * time.Second)
	for store.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Expected at least 3 cycles, got %d", store.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.Stop()
}

func TestSnapshotter_StopHaltsLoop(t *testing.T) {
	store := &fakeSnapshotStore{}
	s := NewSnapshotter(SnapshotterConfig{
		Store:    store,
		Interval: 5 * time.Millisecond,
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Stop()

	settled := store.callCount()
	time.Sleep(30 * time.Millisecond)
	if store.callCount() != settled {
		t.Errorf("Expected no cycles after Stop, got %d more", store.callCount()-settled)
	}
}

func TestUntilNextRun_MidnightAlignment(t *testing.T) {
	s := NewSnapshotter(SnapshotterConfig{Store: &fakeSnapshotStore{}})

	now := time.Date(2025, time.June, 15, 23, 0, 0, 0, time.UTC)
	if got := s.untilNextRun(now); got != time.Hour {
		t.Errorf("Expected 1h until midnight, got %s", got)
	}

	now = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	if got := s.untilNextRun(now); got != 24*time.Hour {
		t.Errorf("Expected 24h at exact midnight, got %s", got)
	}
}

func TestUntilNextRun_IntervalOverride(t *testing.T) {
	s := NewSnapshotter(SnapshotterConfig{
		Store:    &fakeSnapshotStore{},
		Interval: time.Minute,
	})
	if got := s.untilNextRun(time.Now().UTC()); got != time.Minute {
		t.Errorf("Expected interval override 1m, got %s", got)
	}
}
