package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"pagebuilder/internal/domain"
)

// MaxRevisions is how many published snapshots are kept per slug.
const MaxRevisions = 20

// Revision is one published snapshot of a page.
type Revision struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
}

// Revisions lists the revisions of slug, newest first.
func (s *PageStore) Revisions(ctx context.Context, slug string) ([]Revision, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id, slug, label, created_at FROM page_revisions
		 WHERE slug = ? ORDER BY created_at DESC, id DESC`), slug,
	)
	if err != nil {
		return nil, fmt.Errorf("load revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		var created int64
		if err := rows.Scan(&r.ID, &r.Slug, &r.Label, &created); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Revision returns the page stored in a revision.
func (s *PageStore) Revision(ctx context.Context, id string) (*domain.Page, error) {
	var body string
	err := s.db.conn.QueryRowContext(ctx,
		s.db.rebind(`SELECT body FROM page_revisions WHERE id = ?`), id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "load revision", "revision %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load revision: %w", err)
	}
	return domain.ParsePage([]byte(body))
}

// pruneRevisions removes the oldest revisions of slug beyond keep.
// Failures only leave extra rows behind, so they are logged.
func (s *PageStore) pruneRevisions(ctx context.Context, slug string, keep int) {
	// Collect ids first and close the cursor before deleting
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id FROM page_revisions WHERE slug = ? ORDER BY created_at DESC, id DESC`), slug,
	)
	if err != nil {
		log.Printf("storage: prune revisions of %s: %v", slug, err)
		return
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	rows.Close()

	if len(ids) <= keep {
		return
	}
	for _, id := range ids[keep:] {
		if _, err := s.db.conn.ExecContext(ctx, s.db.rebind(`DELETE FROM page_revisions WHERE id = ?`), id); err != nil {
			log.Printf("storage: delete revision %s: %v", id, err)
		}
	}
}
