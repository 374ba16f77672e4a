package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
	"github.com/samvad-hq/tradedesk-client/pkg/httpclient"
)

const testBaseURL = "http://api.test/v1"

// fakeResponse is an in-memory httpclient.Response.
type fakeResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r *fakeResponse) Body() []byte        { return r.body }
func (r *fakeResponse) StatusCode() int     { return r.status }
func (r *fakeResponse) Status() string      { return http.StatusText(r.status) }
func (r *fakeResponse) Header() http.Header { return r.header }

func jsonResponse(t *testing.T, status int, v any) *fakeResponse {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return &fakeResponse{
		status: status,
		header: http.Header{"Content-Type": []string{"application/json; charset=utf-8"}},
		body:   b,
	}
}

func envelope(data any) map[string]any {
	return map[string]any{"success": true, "data": data}
}

// fakeTransport records every request and delegates to handler.
type fakeTransport struct {
	calls   atomic.Int32
	mu      sync.Mutex
	reqs    []httpclient.Request
	handler func(ctx context.Context, req httpclient.Request) (httpclient.Response, error)
}

func (f *fakeTransport) Do(ctx context.Context, req httpclient.Request) (httpclient.Response, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.handler(ctx, req)
}

func (f *fakeTransport) last() httpclient.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestClient(t *testing.T, transport *fakeTransport, mutate func(*apiclient.Config), opts ...apiclient.Option) *apiclient.Client {
	t.Helper()
	cfg := apiclient.DefaultConfig(testBaseURL)
	if mutate != nil {
		mutate(&cfg)
	}
	opts = append([]apiclient.Option{apiclient.WithHTTPClient(transport)}, opts...)
	c, err := apiclient.New(cfg, opts...)
	require.NoError(t, err)
	return c
}
