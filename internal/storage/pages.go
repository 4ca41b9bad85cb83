package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// Store is a persistent home for staging pages, live pages and the
// revisions created by publishing.
type Store interface {
	FetchStaging(ctx context.Context, slug string) (*domain.Page, error)
	SaveStaging(ctx context.Context, p *domain.Page) error
	Publish(ctx context.Context, slug string) error
	FetchLive(ctx context.Context, slug string) (*domain.Page, error)
	Revisions(ctx context.Context, slug string) ([]Revision, error)
	Revision(ctx context.Context, id string) (*domain.Page, error)
	Fingerprint(ctx context.Context, slug string) (int64, error)
	ListSlugs(ctx context.Context) ([]string, error)
	Close() error
}

// PageStore implements Store on a SQL database.
type PageStore struct {
	db    *DB
	newID domain.IDFunc
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db, newID: domain.NewID}
}

func (s *PageStore) Close() error { return s.db.Close() }

// DB exposes the underlying database for app settings.
func (s *PageStore) DB() *DB { return s.db }

func (s *PageStore) FetchStaging(ctx context.Context, slug string) (*domain.Page, error) {
	return s.fetch(ctx, "fetch staging", `SELECT body FROM staging_pages WHERE slug = ?`, slug)
}

func (s *PageStore) FetchLive(ctx context.Context, slug string) (*domain.Page, error) {
	return s.fetch(ctx, "fetch live", `SELECT body FROM live_pages WHERE slug = ?`, slug)
}

func (s *PageStore) fetch(ctx context.Context, op, query, slug string) (*domain.Page, error) {
	var body string
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(query), slug).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, op, "page %s", slug)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindNetworkTransient, op, err)
	}
	p, err := domain.ParsePage([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, slug, err)
	}
	return p, nil
}

// SaveStaging replaces the staging copy of p.Slug.
func (s *PageStore) SaveStaging(ctx context.Context, p *domain.Page) error {
	if p == nil || p.Slug == "" {
		return domain.Errorf(domain.KindInvalidInput, "save staging", "page has no slug")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	_, err = s.db.conn.ExecContext(ctx,
		s.db.rebind(s.db.upsert("staging_pages", "slug", "body", "updated_at")),
		p.Slug, string(body), time.Now().UnixMilli(),
	)
	if err != nil {
		return domain.Wrap(domain.KindNetworkTransient, "save staging", err)
	}
	return nil
}

// Publish copies the staging page to live and records a revision.
func (s *PageStore) Publish(ctx context.Context, slug string) error {
	const op = "publish"
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return domain.Wrap(domain.KindNetworkTransient, op, err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx, s.db.rebind(`SELECT body FROM staging_pages WHERE slug = ?`), slug).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Errorf(domain.KindNotFound, op, "no staging page for %s", slug)
	}
	if err != nil {
		return domain.Wrap(domain.KindNetworkTransient, op, err)
	}

	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx,
		s.db.rebind(s.db.upsert("live_pages", "slug", "body", "published_at")),
		slug, body, now,
	); err != nil {
		return domain.Wrap(domain.KindNetworkTransient, op, fmt.Errorf("write live page: %w", err))
	}
	if _, err := tx.ExecContext(ctx,
		s.db.rebind(`INSERT INTO page_revisions (id, slug, label, body, created_at) VALUES (?, ?, ?, ?, ?)`),
		s.newID(), slug, revisionLabel(body), body, now,
	); err != nil {
		return domain.Wrap(domain.KindNetworkTransient, op, fmt.Errorf("insert revision: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return domain.Wrap(domain.KindNetworkTransient, op, err)
	}

	s.pruneRevisions(ctx, slug, MaxRevisions)
	return nil
}

// Fingerprint changes whenever the staging page of slug is written. It
// is 0 when there is no staging page.
func (s *PageStore) Fingerprint(ctx context.Context, slug string) (int64, error) {
	var updated int64
	err := s.db.conn.QueryRowContext(ctx,
		s.db.rebind(`SELECT updated_at FROM staging_pages WHERE slug = ?`), slug,
	).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fingerprint %s: %w", slug, err)
	}
	return updated, nil
}

// ListSlugs returns every slug with a staging page.
func (s *PageStore) ListSlugs(ctx context.Context) ([]string, error) {
	rows, err := s.db.conn.QueryContext(ctx, `SELECT slug FROM staging_pages ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// revisionLabel is the page title at publish time.
func revisionLabel(body string) string {
	var head struct {
		Title string `json:"title"`
	}
	if json.Unmarshal([]byte(body), &head) != nil {
		return ""
	}
	if len(head.Title) > 255 {
		return head.Title[:255]
	}
	return head.Title
}
