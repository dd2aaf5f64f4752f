package transport

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunGuard_AcquireRelease(t *testing.T) {
	g := NewRunGuard()

	if !g.TryAcquire("exp_1") {
		t.Fatal("first acquire should succeed")
	}
	if g.TryAcquire("exp_1") {
		t.Error("second acquire on same experiment should fail")
	}

	// A different experiment is independent.
	if !g.TryAcquire("exp_2") {
		t.Error("acquire on different experiment should succeed")
	}

	g.Release("exp_1")
	if !g.TryAcquire("exp_1") {
		t.Error("acquire after release should succeed")
	}
}

func TestRunGuard_ReleaseUnknown(t *testing.T) {
	g := NewRunGuard()

	// Releasing an experiment that was never acquired is a no-op.
	g.Release("exp_missing")

	if !g.TryAcquire("exp_missing") {
		t.Error("acquire after spurious release should succeed")
	}
}

func TestRunGuard_Concurrent(t *testing.T) {
	g := NewRunGuard()

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire("exp_1") {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := acquired.Load(); got != 1 {
		t.Errorf("concurrent acquires succeeded = %d, want exactly 1", got)
	}
}
