package remote_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/remote"
)

// fakeAPI is an in-memory page API.
type fakeAPI struct {
	mu      sync.Mutex
	staging map[string][]byte
	live    map[string][]byte
	auth    string
	fail    bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{staging: map[string][]byte{}, live: map[string][]byte{}}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = r.Header.Get("Authorization")
	if f.fail {
		http.Error(w, "boom", http.StatusBadGateway)
		return
	}
	slug := r.PathValue("slug")
	switch {
	case r.Method == http.MethodGet && r.Pattern == "GET /pages/staging/{slug}":
		f.write(w, f.staging[slug])
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.staging[slug] = data
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && r.Pattern == "POST /pages/publish/{slug}":
		data, ok := f.staging[slug]
		if !ok {
			http.NotFound(w, r)
			return
		}
		f.live[slug] = data
		w.WriteHeader(http.StatusNoContent)
	case r.Pattern == "GET /pages/slug/{slug}":
		f.write(w, f.live[slug])
	case r.Pattern == "POST /translate":
		var req struct {
			Locale string   `json:"locale"`
			Texts  []string `json:"texts"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		out := map[string]string{}
		for _, s := range req.Texts {
			out[s] = req.Locale + ":" + s
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"translations": out})
	}
}

func (f *fakeAPI) write(w http.ResponseWriter, data []byte) {
	if data == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func setupServer(t *testing.T) (*fakeAPI, *remote.Client) {
	t.Helper()
	api := newFakeAPI()
	mux := http.NewServeMux()
	for _, pattern := range []string{
		"GET /pages/staging/{slug}", "PUT /pages/staging/{slug}",
		"POST /pages/publish/{slug}", "GET /pages/slug/{slug}", "POST /translate",
	} {
		mux.Handle(pattern, api)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, remote.New(srv.URL+"/", 5*time.Second, remote.WithToken("t0k"))
}

func TestClient_StagingPublishLive(t *testing.T) {
	api, c := setupServer(t)
	ctx := context.Background()

	_, err := c.FetchStaging(ctx, "home")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = c.FetchLive(ctx, "home")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p := domain.NewPage("home", domain.SequentialIDs("n"))
	require.NoError(t, c.SaveStaging(ctx, p))
	api.mu.Lock()
	assert.Equal(t, "Bearer t0k", api.auth)
	api.mu.Unlock()

	got, err := c.FetchStaging(ctx, "home")
	require.NoError(t, err)
	assert.True(t, domain.InSync(p, got))

	require.NoError(t, c.Publish(ctx, "home"))
	live, err := c.FetchLive(ctx, "home")
	require.NoError(t, err)
	assert.True(t, domain.InSync(got, live))

	assert.ErrorIs(t, c.Publish(ctx, "other"), domain.ErrNotFound)
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	api, c := setupServer(t)
	api.mu.Lock()
	api.fail = true
	api.mu.Unlock()

	err := c.SaveStaging(context.Background(), domain.NewPage("home", domain.SequentialIDs("n")))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetworkTransient)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := remote.New(url, time.Second).FetchLive(context.Background(), "home")
	assert.ErrorIs(t, err, domain.ErrNetworkTransient)
}

func TestTranslator(t *testing.T) {
	_, c := setupServer(t)
	tr := remote.NewTranslator(c)

	out, err := tr.Translate(context.Background(), "es", []string{"Hello", "Button"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Hello": "es:Hello", "Button": "es:Button"}, out)
}
