package app

import (
	"context"
	"log"
	"sync"
	"time"

	mcpserver "pagebuilder/internal/mcp"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

const (
	// EventMCPActivity tells the frontend an agent is waiting on the user.
	EventMCPActivity = "mcp:activity"

	watchInterval = 2 * time.Second
	// backends without a fingerprint are compared in full every this many ticks
	fullCompareTicks = 15
)

type approvalLister interface {
	PendingApprovals(ctx context.Context) ([]storage.Approval, error)
}

// pageWatcher polls for changes made by other processes (the standalone
// MCP server, another editor on the same backend) and for approvals those
// processes are waiting on.
type pageWatcher struct {
	pages     *service.PageService
	prints    service.Fingerprinter // nil when the backend has none
	approvals approvalLister
	emitter   service.EventEmitter
	interval  time.Duration

	mu        sync.Mutex
	lastPrint int64
	seenPrint bool
	ticks     int
	// approval ids already sent to the frontend
	emittedApprovals map[string]bool

	stopCh chan struct{}
	done   chan struct{}
}

func newPageWatcher(pages *service.PageService, approvals approvalLister, emitter service.EventEmitter) *pageWatcher {
	w := &pageWatcher{
		pages:            pages,
		approvals:        approvals,
		emitter:          emitter,
		interval:         watchInterval,
		emittedApprovals: map[string]bool{},
	}
	if fp, ok := pages.Backend().(service.Fingerprinter); ok {
		w.prints = fp
	}
	return w
}

// Start begins the polling loop. Should be called once on app startup.
func (w *pageWatcher) Start(ctx context.Context) {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop(ctx)
}

// Stop terminates the polling loop and waits for a running check.
func (w *pageWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.stopCh = nil
}

func (w *pageWatcher) pollLoop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *pageWatcher) check(ctx context.Context) {
	if w.pageChanged(ctx) {
		if _, err := w.pages.CheckExternal(ctx); err != nil {
			log.Printf("page watcher: %v", err)
		}
	}
	w.checkApprovals(ctx)
}

// pageChanged reports whether the stored page may differ from the last
// tick. CheckExternal sorts out our own saves.
func (w *pageWatcher) pageChanged(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.prints == nil {
		w.ticks++
		return w.ticks%fullCompareTicks == 0
	}
	fp, err := w.prints.Fingerprint(ctx, w.pages.Slug())
	if err != nil {
		log.Printf("page watcher: %v", err)
		return false
	}
	changed := w.seenPrint && fp != w.lastPrint
	w.lastPrint = fp
	w.seenPrint = true
	return changed
}

// ── Pending MCP approvals (cross-process) ──────────────────

func (w *pageWatcher) checkApprovals(ctx context.Context) {
	if w.approvals == nil {
		return
	}
	pending, err := w.approvals.PendingApprovals(ctx)
	if err != nil {
		log.Printf("page watcher: %v", err)
		return
	}

	w.mu.Lock()
	var fresh []storage.Approval
	live := make(map[string]bool, len(pending))
	for _, a := range pending {
		live[a.ID] = true
		if !w.emittedApprovals[a.ID] {
			w.emittedApprovals[a.ID] = true
			fresh = append(fresh, a)
		}
	}
	// the standalone server deletes rows once it has read the answer
	for id := range w.emittedApprovals {
		if !live[id] {
			delete(w.emittedApprovals, id)
		}
	}
	w.mu.Unlock()

	for _, a := range fresh {
		w.emitter.Emit(ctx, EventMCPActivity, map[string]string{"slug": w.pages.Slug()})
		w.emitter.Emit(ctx, mcpserver.EventApprovalRequired, a)
	}
}
