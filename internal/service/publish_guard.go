package service

import (
	"context"
	"sync"
)

// ExportedPublishGuard lets _test packages exercise the guard.
type ExportedPublishGuard = publishGuard

// ─────────────────────────────────────────────────────────────
// publishGuard: one publish per slug at a time
// ─────────────────────────────────────────────────────────────

// publishGuard rejects a publish for a slug that is already being
// published, whether from the toolbar, MCP or the scheduler.
type publishGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks slug as publishing. It returns false if it already is.
func (g *publishGuard) TryLock(slug string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[slug]; ok {
		return false
	}
	g.running[slug] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock must follow a successful TryLock.
func (g *publishGuard) Unlock(slug string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, slug)
	g.wg.Done()
}

// Running reports whether slug is being published.
func (g *publishGuard) Running(slug string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[slug]
	return ok
}

// WaitAll blocks until in-flight publishes finish or ctx is done.
func (g *publishGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
