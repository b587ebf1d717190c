package keymutex

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRunExclusive_SerializesSameKey(t *testing.T) {
	km := New()

	// A plain int incremented from many goroutines under the same key. Any
	// interleaving of the critical sections would lose increments and be
	// caught by the race detector.
	counter := 0
	inCritical := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := km.RunExclusive("user-1", func() error {
				inCritical++
				if inCritical != 1 {
					t.Errorf("critical section overlap: %d goroutines inside", inCritical)
				}
				counter++
				inCritical--
				return nil
			})
			if err != nil {
				t.Errorf("RunExclusive failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("Expected counter 50, got %d", counter)
	}
}

func TestRunExclusive_DifferentKeysRunConcurrently(t *testing.T) {
	km := New()

	release := make(chan struct{})
	entered := make(chan struct{})

	go func() {
		_ = km.RunExclusive("round-1", func() error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered

	// A different key must not wait on round-1's holder.
	done := make(chan struct{})
	go func() {
		_ = km.RunExclusive("round-2", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("different key blocked behind an unrelated lock")
	}

	close(release)
}

func TestRunExclusive_ErrorPropagatesAndReleases(t *testing.T) {
	km := New()
	sentinel := errors.New("work failed")

	if err := km.RunExclusive("user-1", func() error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("Expected sentinel error, got %v", err)
	}

	// The failed call must have released the lock.
	done := make(chan struct{})
	go func() {
		_ = km.RunExclusive("user-1", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock not released after error return")
	}
}

func TestRunExclusive_CleansUpIdleLocks(t *testing.T) {
	km := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := []string{"a", "b", "c", "d"}[n%4]
			_ = km.RunExclusive(key, func() error { return nil })
		}(i)
	}
	wg.Wait()

	if got := km.Len(); got != 0 {
		t.Errorf("Expected 0 live locks after all work finished, got %d (%v)", got, km.ActiveKeys())
	}
}

func TestRunExclusive_ActiveKeysWhileHeld(t *testing.T) {
	km := New()

	release := make(chan struct{})
	entered := make(chan struct{})

	go func() {
		_ = km.RunExclusive("user-7", func() error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	keys := km.ActiveKeys()
	if len(keys) != 1 || keys[0] != "user-7" {
		t.Errorf("Expected active keys [user-7], got %v", keys)
	}
	close(release)
}
