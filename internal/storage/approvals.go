package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// Approval states stored in mcp_approvals.status.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Approval is a destructive MCP action waiting for the desktop user. The
// standalone MCP process writes rows and the desktop app resolves them.
type Approval struct {
	ID          string    `json:"id"`
	Tool        string    `json:"tool"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Metadata    string    `json:"metadata"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateApproval inserts a pending approval.
func (db *DB) CreateApproval(ctx context.Context, a Approval) error {
	if a.Metadata == "" {
		a.Metadata = "{}"
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		a.ID, a.Tool, a.Description, ApprovalPending, a.Metadata, a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

// ApprovalStatus returns the status of one approval.
func (db *DB) ApprovalStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := db.conn.QueryRowContext(ctx, db.rebind(`SELECT status FROM mcp_approvals WHERE id = ?`), id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.Errorf(domain.KindNotFound, "approval status", "%s", id)
	}
	if err != nil {
		return "", fmt.Errorf("read approval %s: %w", id, err)
	}
	return status, nil
}

// ResolveApproval marks a pending approval approved or rejected.
func (db *DB) ResolveApproval(ctx context.Context, id string, approved bool) error {
	status := ApprovalRejected
	if approved {
		status = ApprovalApproved
	}
	res, err := db.conn.ExecContext(ctx, db.rebind(
		`UPDATE mcp_approvals SET status = ? WHERE id = ? AND status = ?`), status, id, ApprovalPending)
	if err != nil {
		return fmt.Errorf("resolve approval %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Errorf(domain.KindNotFound, "resolve approval", "%s", id)
	}
	return nil
}

// DeleteApproval removes an approval row.
func (db *DB) DeleteApproval(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM mcp_approvals WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete approval %s: %w", id, err)
	}
	return nil
}

// PendingApprovals lists unresolved approvals, oldest first.
func (db *DB) PendingApprovals(ctx context.Context) ([]Approval, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(
		`SELECT id, tool, description, status, metadata, created_at FROM mcp_approvals WHERE status = ? ORDER BY created_at`),
		ApprovalPending)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []Approval
	for rows.Next() {
		var a Approval
		var created int64
		if err := rows.Scan(&a.ID, &a.Tool, &a.Description, &a.Status, &a.Metadata, &created); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		a.CreatedAt = time.UnixMilli(created)
		out = append(out, a)
	}
	return out, rows.Err()
}
