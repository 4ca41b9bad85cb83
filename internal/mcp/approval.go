package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
)

// ApprovalStore persists approvals so a standalone MCP process can ask
// the desktop app. *storage.DB implements it.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, a storage.Approval) error
	ApprovalStatus(ctx context.Context, id string) (string, error)
	DeleteApproval(ctx context.Context, id string) error
}

// ApprovalQueue holds destructive tool calls until the user approves
// them. In-process it waits on a channel resolved by Approve/Reject; with
// a store it polls the mcp_approvals table instead.
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan bool
	emitter service.EventEmitter
	store   ApprovalStore
	auto    bool

	timeout time.Duration
	poll    time.Duration
}

func NewApprovalQueue(emitter service.EventEmitter, store ApprovalStore, autoApprove bool) *ApprovalQueue {
	if emitter == nil {
		emitter = service.NoopEmitter{}
	}
	return &ApprovalQueue{
		pending: make(map[string]chan bool),
		emitter: emitter,
		store:   store,
		auto:    autoApprove,
		timeout: 120 * time.Second,
		poll:    500 * time.Millisecond,
	}
}

// Request blocks until the action is approved, rejected or times out. A
// rejection or timeout is returned as an error.
func (q *ApprovalQueue) Request(ctx context.Context, tool, description, metadata string) error {
	if q.auto {
		log.Printf("mcp: auto-approved %s: %s", tool, description)
		return nil
	}
	if metadata == "" {
		metadata = "{}"
	}
	id := uuid.New().String()
	if q.store != nil {
		return q.requestViaStore(ctx, id, tool, description, metadata)
	}
	return q.requestViaChannel(ctx, id, tool, description, metadata)
}

func (q *ApprovalQueue) requestViaStore(ctx context.Context, id, tool, description, metadata string) error {
	err := q.store.CreateApproval(ctx, storage.Approval{
		ID: id, Tool: tool, Description: description, Metadata: metadata,
	})
	if err != nil {
		return err
	}
	// the row is gone once we stop waiting, whatever the outcome
	defer q.store.DeleteApproval(context.WithoutCancel(ctx), id)

	timeout := time.NewTimer(q.timeout)
	defer timeout.Stop()
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, err := q.store.ApprovalStatus(ctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("approval %s disappeared: %s", id, tool)
			}
			if err != nil {
				log.Printf("mcp: poll approval %s: %v", id, err)
				continue
			}
			switch status {
			case storage.ApprovalApproved:
				return nil
			case storage.ApprovalRejected:
				return fmt.Errorf("action rejected by user: %s", tool)
			}
		case <-timeout.C:
			return fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *ApprovalQueue) requestViaChannel(ctx context.Context, id, tool, description, metadata string) error {
	ch := make(chan bool, 1)
	q.mu.Lock()
	q.pending[id] = ch
	q.mu.Unlock()
	defer q.cleanup(id)

	q.emitter.Emit(ctx, EventApprovalRequired, storage.Approval{
		ID:          id,
		Tool:        tool,
		Description: description,
		Status:      storage.ApprovalPending,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	})

	select {
	case approved := <-ch:
		if !approved {
			return fmt.Errorf("action rejected by user: %s", tool)
		}
		return nil
	case <-time.After(q.timeout):
		q.emitter.Emit(ctx, EventApprovalDismissed, map[string]string{"id": id})
		return fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
	case <-ctx.Done():
		q.emitter.Emit(ctx, EventApprovalDismissed, map[string]string{"id": id})
		return ctx.Err()
	}
}

// Approve resolves an in-process request. It reports whether id was
// waiting.
func (q *ApprovalQueue) Approve(id string) bool { return q.resolve(id, true) }

// Reject resolves an in-process request as rejected.
func (q *ApprovalQueue) Reject(id string) bool { return q.resolve(id, false) }

func (q *ApprovalQueue) resolve(id string, approved bool) bool {
	q.mu.Lock()
	ch, ok := q.pending[id]
	q.mu.Unlock()
	if ok {
		select {
		case ch <- approved:
		default:
		}
	}
	return ok
}

// Pending lists the ids waiting in-process.
func (q *ApprovalQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	return ids
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
