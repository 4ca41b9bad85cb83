package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pagebuilder/internal/domain"
)

// Client talks to a page API over HTTP:
//
//	GET  /pages/staging/{slug}
//	PUT  /pages/staging/{slug}
//	POST /pages/publish/{slug}
//	GET  /pages/slug/{slug}
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) FetchStaging(ctx context.Context, slug string) (*domain.Page, error) {
	return c.getPage(ctx, "fetch staging", "/pages/staging/"+url.PathEscape(slug))
}

func (c *Client) FetchLive(ctx context.Context, slug string) (*domain.Page, error) {
	return c.getPage(ctx, "fetch live", "/pages/slug/"+url.PathEscape(slug))
}

// SaveStaging sends the page with its slug and version set.
func (c *Client) SaveStaging(ctx context.Context, p *domain.Page) error {
	if p == nil || p.Slug == "" {
		return domain.Errorf(domain.KindInvalidInput, "save staging", "page has no slug")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	resp, err := c.do(ctx, "save staging", http.MethodPut, "/pages/staging/"+url.PathEscape(p.Slug), body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) Publish(ctx context.Context, slug string) error {
	resp, err := c.do(ctx, "publish", http.MethodPost, "/pages/publish/"+url.PathEscape(slug), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) getPage(ctx context.Context, op, path string) (*domain.Page, error) {
	resp, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Wrap(domain.KindNetworkTransient, op, err)
	}
	return domain.ParsePage(data)
}

// do sends a request and maps failures onto domain error kinds: 404 is
// NotFound, anything else non-2xx or a transport error is
// NetworkTransient. The caller closes the body of a successful response.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.KindNetworkTransient, op, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.Errorf(domain.KindNotFound, op, "%s %s", method, path)
	}
	return nil, domain.Errorf(domain.KindNetworkTransient, op, "%s %s: %s %s",
		method, path, resp.Status, strings.TrimSpace(string(msg)))
}
