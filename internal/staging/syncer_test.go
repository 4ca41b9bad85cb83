package staging_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/staging"
)

type fakeBackend struct {
	mu        sync.Mutex
	staging   map[string]*domain.Page
	live      map[string]*domain.Page
	saves     []string // titles in save order
	saveErr   error
	liveErr   error
	published int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{staging: map[string]*domain.Page{}, live: map[string]*domain.Page{}}
}

func (f *fakeBackend) FetchStaging(_ context.Context, slug string) (*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.staging[slug]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "fetch staging", "%s", slug)
	}
	return p.Clone(), nil
}

func (f *fakeBackend) SaveStaging(_ context.Context, p *domain.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.staging[p.Slug] = p.Clone()
	f.saves = append(f.saves, p.Title)
	return nil
}

func (f *fakeBackend) Publish(_ context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.staging[slug]
	if !ok {
		return domain.Errorf(domain.KindNotFound, "publish", "%s", slug)
	}
	f.live[slug] = p.Clone()
	f.published++
	return nil
}

func (f *fakeBackend) FetchLive(_ context.Context, slug string) (*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liveErr != nil {
		return nil, f.liveErr
	}
	p, ok := f.live[slug]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "fetch live", "%s", slug)
	}
	return p.Clone(), nil
}

func (f *fakeBackend) saved() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saves...)
}

func fastOptions() staging.Options {
	return staging.Options{
		Delay:        20 * time.Millisecond,
		StatusWindow: 40 * time.Millisecond,
		NewID:        domain.SequentialIDs("n"),
	}
}

func TestLoad_SeedsMissingPage(t *testing.T) {
	s := staging.New(newFakeBackend(), "home", fastOptions())

	p, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "home", p.Slug)
	require.Len(t, p.Sections, 1)

	st := s.Status()
	assert.False(t, st.LiveVisible)
	assert.False(t, st.InSync)
	assert.Equal(t, staging.StateIdle, st.State)
}

func TestLoad_LiveFailureClearsLiveState(t *testing.T) {
	b := newFakeBackend()
	p := domain.NewPage("home", domain.SequentialIDs("n"))
	b.staging["home"], b.live["home"] = p.Clone(), p.Clone()
	b.liveErr = domain.Errorf(domain.KindNetworkTransient, "fetch live", "timeout")

	s := staging.New(b, "home", fastOptions())
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Nil(t, s.Live())
	assert.False(t, s.Status().LiveVisible)
	assert.False(t, s.Status().InSync)
}

func TestLoad_StagingFailureIsReturned(t *testing.T) {
	b := &failingBackend{fakeBackend: newFakeBackend()}
	s := staging.New(b, "home", fastOptions())

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetworkTransient)
	assert.Equal(t, staging.StateError, s.Status().State)
}

type failingBackend struct{ *fakeBackend }

func (failingBackend) FetchStaging(context.Context, string) (*domain.Page, error) {
	return nil, domain.Errorf(domain.KindNetworkTransient, "fetch staging", "connection refused")
}

func TestSchedule_LatestStateWins(t *testing.T) {
	b := newFakeBackend()
	s := staging.New(b, "home", fastOptions())
	p, err := s.Load(context.Background())
	require.NoError(t, err)

	var mu sync.Mutex
	snapshot := func() *domain.Page {
		mu.Lock()
		defer mu.Unlock()
		return p.Clone()
	}
	for _, title := range []string{"a", "b", "c", "d"} {
		mu.Lock()
		p.Title = title
		mu.Unlock()
		s.Schedule(snapshot)
	}
	mu.Lock()
	p.Title = "final"
	mu.Unlock()

	require.Eventually(t, func() bool { return len(b.saved()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"final"}, b.saved(), "snapshot is read when the debounce fires")
	assert.False(t, s.Pending())

	require.Eventually(t, func() bool { return s.Status().State == staging.StateIdle }, time.Second, 5*time.Millisecond)
	assert.False(t, s.Status().LastSavedAt.IsZero())
}

func TestFlush_SavesImmediatelyOnce(t *testing.T) {
	b := newFakeBackend()
	opts := fastOptions()
	opts.Delay = 50 * time.Millisecond
	s := staging.New(b, "home", opts)
	p, err := s.Load(context.Background())
	require.NoError(t, err)

	p.Title = "flushed"
	s.Schedule(func() *domain.Page { return p })
	require.True(t, s.Pending())
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, []string{"flushed"}, b.saved())

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, b.saved(), 1, "debounce fires with nothing pending")
	require.NoError(t, s.Flush(context.Background()))
	assert.Len(t, b.saved(), 1)
}

func TestSaveFailureReportsError(t *testing.T) {
	b := newFakeBackend()
	b.saveErr = errors.New("disk full")
	var mu sync.Mutex
	var states []staging.State
	opts := fastOptions()
	opts.OnStatus = func(st staging.Status) {
		mu.Lock()
		states = append(states, st.State)
		mu.Unlock()
	}
	s := staging.New(b, "home", opts)
	p, err := s.Load(context.Background())
	require.NoError(t, err)

	s.Schedule(func() *domain.Page { return p })
	assert.Error(t, s.Flush(context.Background()))
	assert.Equal(t, staging.StateError, s.Status().State)
	assert.Equal(t, "Save Failed", s.Status().Message)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) > 0 && states[len(states)-1] == staging.StateIdle
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, staging.StateProcessing)
	assert.Contains(t, states, staging.StateError)
}

// Load with matching staging and live, edit, then publish.
func TestPublishRestoresSync(t *testing.T) {
	b := newFakeBackend()
	ids := domain.SequentialIDs("n")
	seed := domain.NewPage("home", ids)
	b.staging["home"], b.live["home"] = seed.Clone(), seed.Clone()

	opts := fastOptions()
	opts.StatusWindow = 200 * time.Millisecond
	s := staging.New(b, "home", opts)
	p, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Status().InSync)
	assert.True(t, s.Status().LiveVisible)

	p.Sections = append(p.Sections, domain.NewSection(ids))
	s.Schedule(func() *domain.Page { return p })
	assert.False(t, s.Status().InSync)

	require.NoError(t, s.Publish(context.Background(), p))
	st := s.Status()
	assert.True(t, st.InSync)
	assert.True(t, st.LiveVisible)
	assert.Equal(t, staging.StateSuccess, st.State)
	assert.Equal(t, "Published", st.Message)
	assert.Equal(t, 1, b.published)
	assert.False(t, s.Pending())
	require.Len(t, s.Live().Sections, 2)

	require.Eventually(t, func() bool { return s.Status().State == staging.StateIdle }, time.Second, 5*time.Millisecond)
}

func TestPublishKeepsLaterEditPending(t *testing.T) {
	b := newFakeBackend()
	opts := fastOptions()
	opts.Delay = time.Hour
	s := staging.New(b, "home", opts)
	ctx := context.Background()
	p, err := s.Load(ctx)
	require.NoError(t, err)

	var mu sync.Mutex
	current := p.Clone()
	snapshot := func() *domain.Page {
		mu.Lock()
		defer mu.Unlock()
		return current.Clone()
	}

	published := p.Clone()
	published.Title = "First"
	mu.Lock()
	current.Title = "Second"
	mu.Unlock()
	s.Schedule(snapshot)

	require.NoError(t, s.Publish(ctx, published))
	assert.True(t, s.Pending(), "edit made after the publish snapshot")
	assert.Equal(t, "First", b.live["home"].Title)

	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, []string{"First", "Second"}, b.saved())
	assert.False(t, s.Pending())
}

func TestPublishHiddenPageIsNotLiveVisible(t *testing.T) {
	b := newFakeBackend()
	s := staging.New(b, "home", fastOptions())
	p, err := s.Load(context.Background())
	require.NoError(t, err)

	hidden := false
	p.Visible = &hidden
	require.NoError(t, s.Publish(context.Background(), p))
	assert.False(t, s.Status().LiveVisible)
	assert.True(t, s.Status().InSync)
}

func TestRefreshLive(t *testing.T) {
	b := newFakeBackend()
	s := staging.New(b, "home", fastOptions())
	p, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Status().InSync)

	b.mu.Lock()
	b.live["home"] = p.Clone()
	b.mu.Unlock()
	require.NoError(t, s.RefreshLive(context.Background(), p))
	assert.True(t, s.Status().InSync)

	b.mu.Lock()
	b.liveErr = domain.Errorf(domain.KindNetworkTransient, "fetch live", "timeout")
	b.mu.Unlock()
	assert.ErrorIs(t, s.RefreshLive(context.Background(), p), domain.ErrNetworkTransient)
	assert.False(t, s.Status().InSync)
	assert.False(t, s.Status().LiveVisible)
}
