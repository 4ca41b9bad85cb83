package staging

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/bep/debounce"
	"golang.org/x/sync/errgroup"

	"pagebuilder/internal/domain"
)

// Backend stores the staging copy of a page and promotes it to live.
type Backend interface {
	FetchStaging(ctx context.Context, slug string) (*domain.Page, error)
	SaveStaging(ctx context.Context, p *domain.Page) error
	Publish(ctx context.Context, slug string) error
	FetchLive(ctx context.Context, slug string) (*domain.Page, error)
}

// State is the save/publish indicator.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Status is what the toolbar shows about persistence.
type Status struct {
	State       State     `json:"state"`
	Message     string    `json:"message,omitempty"`
	LiveVisible bool      `json:"liveVisible"`
	InSync      bool      `json:"inSync"`
	LastSavedAt time.Time `json:"lastSavedAt,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Options configures a Syncer. Zero values get the defaults.
type Options struct {
	Delay        time.Duration // debounce before an autosave, 800ms
	StatusWindow time.Duration // how long success/error stays visible, 2s
	Timeout      time.Duration // per backend call, 30s
	NewID        domain.IDFunc
	OnStatus     func(Status)
}

// Syncer keeps one page slug in sync with a Backend: debounced staging
// saves, publishing and the in-sync flag against the live page.
type Syncer struct {
	backend Backend
	slug    string
	opts    Options

	debounced func(func())
	saveMu    sync.Mutex // one backend write at a time

	mu      sync.Mutex
	status  Status
	live    *domain.Page
	pending func() *domain.Page
	gen     uint64 // bumped by every Schedule
	idleAt  *time.Timer
}

// New creates a Syncer for slug.
func New(backend Backend, slug string, opts Options) *Syncer {
	if opts.Delay <= 0 {
		opts.Delay = 800 * time.Millisecond
	}
	if opts.StatusWindow <= 0 {
		opts.StatusWindow = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.NewID == nil {
		opts.NewID = domain.NewID
	}
	return &Syncer{
		backend:   backend,
		slug:      slug,
		opts:      opts,
		debounced: debounce.New(opts.Delay),
		status:    Status{State: StateIdle},
	}
}

// Slug is the page this syncer persists.
func (s *Syncer) Slug() string { return s.slug }

// Status returns the current indicator state.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Live returns a copy of the last fetched live page, or nil.
func (s *Syncer) Live() *domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Clone()
}

// Load fetches staging and live concurrently. A missing staging page is
// seeded with one default section; a failed live fetch only clears the
// live state.
func (s *Syncer) Load(ctx context.Context) (*domain.Page, error) {
	var staging, live *domain.Page
	var liveErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.backend.FetchStaging(gctx, s.slug)
		if errors.Is(err, domain.ErrNotFound) {
			log.Printf("staging: no staging page for %s, seeding a new draft", s.slug)
			p, err = domain.NewPage(s.slug, s.opts.NewID), nil
		}
		staging = p
		return err
	})
	g.Go(func() error {
		live, liveErr = s.backend.FetchLive(gctx, s.slug)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.fail("Load Failed", err)
		return nil, err
	}
	if liveErr != nil && !errors.Is(liveErr, domain.ErrNotFound) {
		log.Printf("staging: fetch live %s: %v", s.slug, liveErr)
	}

	staging.Slug = s.slug
	s.update(func(st *Status) {
		s.setLive(st, live)
		st.InSync = s.live != nil && domain.InSync(staging, s.live)
	})
	return staging, nil
}

// Schedule records that the page changed. snapshot is called when the
// debounce fires, so only the latest state is ever sent. The in-sync flag
// is refreshed right away.
func (s *Syncer) Schedule(snapshot func() *domain.Page) {
	p := snapshot()
	s.mu.Lock()
	s.pending = snapshot
	s.gen++
	s.mu.Unlock()
	s.update(func(st *Status) {
		st.InSync = s.live != nil && domain.InSync(p, s.live)
	})
	s.debounced(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
		defer cancel()
		_ = s.Flush(ctx)
	})
}

// Flush saves a scheduled change now instead of waiting for the
// debounce. It does nothing when no change is pending.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	snapshot := s.pending
	s.pending = nil
	s.mu.Unlock()
	if snapshot == nil {
		return nil
	}
	return s.save(ctx, snapshot())
}

// Pending reports whether a change is waiting for the debounce.
func (s *Syncer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *Syncer) save(ctx context.Context, p *domain.Page) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	p = s.prepare(p)
	s.update(func(st *Status) {
		st.State, st.Message, st.Error = StateProcessing, "Saving", ""
	})
	if err := s.backend.SaveStaging(ctx, p); err != nil {
		log.Printf("staging: save %s failed: %v", s.slug, err)
		s.fail("Save Failed", err)
		return err
	}
	s.succeed("Saved", func(st *Status) {
		st.LastSavedAt = time.Now()
		st.InSync = s.live != nil && domain.InSync(p, s.live)
	})
	return nil
}

// Publish saves p as staging, promotes it to live and refetches the live
// page.
func (s *Syncer) Publish(ctx context.Context, p *domain.Page) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	p = s.prepare(p)
	s.update(func(st *Status) {
		st.State, st.Message, st.Error = StateProcessing, "Publishing", ""
	})

	if err := s.backend.SaveStaging(ctx, p); err != nil {
		log.Printf("staging: save before publish %s: %v", s.slug, err)
		s.fail("Publish Failed", err)
		return err
	}
	if err := s.backend.Publish(ctx, s.slug); err != nil {
		log.Printf("staging: publish %s: %v", s.slug, err)
		s.fail("Publish Failed", err)
		return err
	}
	live, err := s.backend.FetchLive(ctx, s.slug)
	if err != nil {
		log.Printf("staging: refetch live %s: %v", s.slug, err)
	}
	s.settlePending(p)
	s.succeed("Published", func(st *Status) {
		st.LastSavedAt = time.Now()
		s.setLive(st, live)
		st.InSync = s.live != nil && domain.InSync(p, s.live)
	})
	return nil
}

// settlePending drops a scheduled save that would only rewrite the page
// just published. A change made after p was taken stays pending so the
// debounce still saves it.
func (s *Syncer) settlePending(p *domain.Page) {
	s.mu.Lock()
	snapshot, gen := s.pending, s.gen
	s.mu.Unlock()
	if snapshot == nil || !domain.SameDocument(s.prepare(snapshot()), p) {
		return
	}
	s.mu.Lock()
	if s.gen == gen {
		s.pending = nil
	}
	s.mu.Unlock()
}

// RefreshLive refetches the live page and recomputes the in-sync flag
// against staging.
func (s *Syncer) RefreshLive(ctx context.Context, staging *domain.Page) error {
	live, err := s.backend.FetchLive(ctx, s.slug)
	s.update(func(st *Status) {
		s.setLive(st, live)
		st.InSync = s.live != nil && staging != nil && domain.InSync(staging, s.live)
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// prepare stamps the fields every staging write carries.
func (s *Syncer) prepare(p *domain.Page) *domain.Page {
	p = p.Clone()
	p.Slug = s.slug
	p.Version = domain.PageVersion
	return p
}

// setLive must run inside update. A nil page means the live fetch failed
// or there is no live page.
func (s *Syncer) setLive(st *Status, live *domain.Page) {
	s.live = live
	st.LiveVisible = live != nil && live.IsVisible()
}

func (s *Syncer) fail(msg string, err error) {
	s.finish(func(st *Status) {
		st.State, st.Message, st.Error = StateError, msg, err.Error()
	})
}

func (s *Syncer) succeed(msg string, fn func(st *Status)) {
	s.finish(func(st *Status) {
		st.State, st.Message, st.Error = StateSuccess, msg, ""
		fn(st)
	})
}

// finish applies fn and returns the indicator to idle after the status
// window.
func (s *Syncer) finish(fn func(st *Status)) {
	s.update(func(st *Status) {
		fn(st)
		if s.idleAt != nil {
			s.idleAt.Stop()
		}
		s.idleAt = time.AfterFunc(s.opts.StatusWindow, func() {
			s.update(func(st *Status) {
				if st.State == StateSuccess || st.State == StateError {
					st.State, st.Message, st.Error = StateIdle, "", ""
				}
			})
		})
	})
}

// update mutates the status under the lock and reports it.
func (s *Syncer) update(fn func(st *Status)) {
	s.mu.Lock()
	prev := s.status
	fn(&s.status)
	next := s.status
	notify := s.opts.OnStatus
	s.mu.Unlock()
	if notify != nil && next != prev {
		notify(next)
	}
}
