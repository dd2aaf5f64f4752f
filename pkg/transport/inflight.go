package transport

import "sync"

// RunGuard admits at most one sandbox execution per experiment at a time.
// Executions are slow and update the experiment record on completion, so
// a second concurrent run against the same experiment would race on the
// stored artifacts.
//
// All methods are safe for concurrent access.
type RunGuard struct {
	mu      sync.Mutex
	running map[string]bool
}

// NewRunGuard creates a new empty guard.
func NewRunGuard() *RunGuard {
	return &RunGuard{
		running: make(map[string]bool),
	}
}

// TryAcquire marks the experiment as running. Returns false if an
// execution for the experiment is already in flight.
func (g *RunGuard) TryAcquire(experimentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running[experimentID] {
		return false
	}
	g.running[experimentID] = true
	return true
}

// Release marks the experiment as idle again.
func (g *RunGuard) Release(experimentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, experimentID)
}
