// Package apiclient is the request layer shared by every dashboard service:
// a JSON API client with a TTL response cache, single-flight GETs, coarse
// invalidation on writes, per-request timeouts, response validation and
// nonce request tagging.
package apiclient

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/samvad-hq/tradedesk-client/pkg/httpclient"
)

// TokenSource yields the bearer token for the current session. An empty
// token means the request is sent without an Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f(ctx).
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Mutation describes a successful write issued through the client.
type Mutation struct {
	Method       string
	Endpoint     string
	ResourcePath string
	Invalidated  int
	RequestKey   string
	OccurredAt   time.Time
}

// MutationNotifier is told about every successful mutation. Notification
// failures are logged and never fail the call.
type MutationNotifier interface {
	NotifyMutation(ctx context.Context, m Mutation) error
}

// Client is safe for concurrent use.
type Client struct {
	cfg      Config
	http     httpclient.Client
	tokens   TokenSource
	log      Logger
	now      func() time.Time
	nonce    *NonceGenerator
	notifier MutationNotifier

	cache  *responseCache
	flight singleflight.Group
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport.
func WithHTTPClient(h httpclient.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource sets the bearer token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger.
func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithClock replaces the clock used for cache timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithNonceGenerator replaces the nonce generator.
func WithNonceGenerator(g *NonceGenerator) Option {
	return func(c *Client) { c.nonce = g }
}

// WithMutationNotifier registers a notifier for successful mutations.
func WithMutationNotifier(n MutationNotifier) Option {
	return func(c *Client) { c.notifier = n }
}

// New builds a client. Zero Timeout and CacheTTL fall back to 30s.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(0)
	}
	if c.nonce == nil {
		c.nonce = NewNonceGenerator()
	}
	c.log = ensureLogger(c.log)
	c.cache = newResponseCache(cfg.CacheEnabled, cfg.CacheTTL, c.now)
	return c, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config { return c.cfg }

// requestOptions are the per-call knobs shared by reads and writes.
type requestOptions struct {
	cacheKey string
	ttl      time.Duration
	headers  map[string]string
	params   parseFunc
	body     parseFunc
	response parseFunc
}

// RequestOption customizes a single call.
type RequestOption func(*requestOptions)

// WithCacheKey overrides the derived cache key of a GET.
func WithCacheKey(key string) RequestOption {
	return func(o *requestOptions) { o.cacheKey = key }
}

// WithCacheTTL overrides the client's default TTL for a GET result.
func WithCacheTTL(ttl time.Duration) RequestOption {
	return func(o *requestOptions) { o.ttl = ttl }
}

// WithHeader adds a request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithParamsSchema validates GET params before the cache key is derived.
func WithParamsSchema[P any](v Validator[P]) RequestOption {
	return func(o *requestOptions) { o.params = erase(v) }
}

// WithBodySchema validates a mutation body before it is sent.
func WithBodySchema[B any](v Validator[B]) RequestOption {
	return func(o *requestOptions) { o.body = erase(v) }
}

// WithResponseSchema validates the unwrapped response payload. A GET that
// joins another caller's in-flight request parses the shared payload with
// its own schema. Cache hits return the stored value as validated by the
// call that populated it.
func WithResponseSchema[T any](v Validator[T]) RequestOption {
	return func(o *requestOptions) { o.response = erase(v) }
}

func collectOptions(opts []RequestOption) *requestOptions {
	o := &requestOptions{}
	for _, fn := range opts {
		if fn != nil {
			fn(o)
		}
	}
	return o
}

// Get returns the payload for endpoint, serving fresh cached results without
// a network call. Concurrent calls with the same cache key share a single
// round trip and observe the same value or error.
func (c *Client) Get(ctx context.Context, endpoint string, params Params, opts ...RequestOption) (any, error) {
	o := collectOptions(opts)

	cleaned, err := c.cleanParams(params, o)
	if err != nil {
		return nil, err
	}

	key := o.cacheKey
	if key == "" {
		key = c.CacheKey(endpoint, cleaned)
	}

	if data, ok := c.cache.get(key); ok {
		c.log.DebugObj("api cache hit", "cache", map[string]any{"key": key})
		return data, nil
	}

	// The shared flight must not die with whichever caller started it.
	flightCtx := context.WithoutCancel(ctx)
	owner := false
	ch := c.flight.DoChan(key, func() (any, error) {
		owner = true
		if data, ok := c.cache.get(key); ok {
			return flightResult{raw: data, parsed: data}, nil
		}
		c.log.DebugObj("api cache miss", "cache", map[string]any{"key": key})
		res, err := c.request(flightCtx, http.MethodGet, endpoint, cleaned, nil, o)
		if err != nil {
			return nil, err
		}
		c.cache.set(key, res.data, o.ttl)
		return flightResult{raw: res.raw, parsed: res.data}, nil
	})

	select {
	case <-ctx.Done():
		return nil, transportError(ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		shared := r.Val.(flightResult)
		if owner {
			return shared.parsed, nil
		}
		c.log.DebugObj("api request shared", "cache", map[string]any{"key": key})
		return c.parseShared(shared.raw, o)
	}
}

// flightResult is what a GET flight hands to its waiters: the unwrapped
// payload and the value produced by the starting caller's response schema.
type flightResult struct {
	raw    any
	parsed any
}

// parseShared applies a waiter's own response schema to a payload fetched by
// another caller.
func (c *Client) parseShared(raw any, o *requestOptions) (any, error) {
	if o.response == nil {
		return raw, nil
	}
	parsed, err := o.response(raw)
	if err != nil {
		return nil, validationError(raw, err, "")
	}
	return parsed, nil
}

func (c *Client) cleanParams(params Params, o *requestOptions) (Params, error) {
	if o.params == nil {
		return stripNil(params), nil
	}
	var input any = map[string]any(params)
	if params == nil {
		input = map[string]any{}
	}
	parsed, err := o.params(input)
	if err != nil {
		return nil, validationError(params, err, "request params")
	}
	out, err := toParams(parsed)
	if err != nil {
		return nil, validationError(params, err, "request params")
	}
	return stripNil(out), nil
}

// Post sends data with POST and invalidates related cached reads on success.
func (c *Client) Post(ctx context.Context, endpoint string, data any, opts ...RequestOption) (any, error) {
	return c.mutate(ctx, http.MethodPost, endpoint, data, opts)
}

// Put sends data with PUT and invalidates related cached reads on success.
func (c *Client) Put(ctx context.Context, endpoint string, data any, opts ...RequestOption) (any, error) {
	return c.mutate(ctx, http.MethodPut, endpoint, data, opts)
}

// Patch sends data with PATCH and invalidates related cached reads on success.
func (c *Client) Patch(ctx context.Context, endpoint string, data any, opts ...RequestOption) (any, error) {
	return c.mutate(ctx, http.MethodPatch, endpoint, data, opts)
}

// Delete sends DELETE, with an optional body, and invalidates related cached
// reads on success.
func (c *Client) Delete(ctx context.Context, endpoint string, data any, opts ...RequestOption) (any, error) {
	return c.mutate(ctx, http.MethodDelete, endpoint, data, opts)
}

func (c *Client) mutate(ctx context.Context, method, endpoint string, data any, opts []RequestOption) (any, error) {
	o := collectOptions(opts)

	body := data
	if o.body != nil && data != nil {
		parsed, err := o.body(data)
		if err != nil {
			return nil, validationError(data, err, "request body")
		}
		body = parsed
	}

	res, err := c.request(ctx, method, endpoint, nil, body, o)
	if err != nil {
		return nil, err
	}

	m := Mutation{
		Method:       method,
		Endpoint:     endpoint,
		ResourcePath: resourcePath(endpoint),
		RequestKey:   res.requestKey,
		OccurredAt:   c.now().UTC(),
	}
	switch c.cfg.Invalidation {
	case InvalidateAll:
		m.Invalidated = c.cache.len()
		c.cache.clear()
	default:
		m.Invalidated = c.cache.removeContaining(m.ResourcePath)
	}
	c.log.DebugObj("api cache invalidated", "invalidation", map[string]any{
		"method":        method,
		"resource_path": m.ResourcePath,
		"removed":       m.Invalidated,
	})

	if c.notifier != nil {
		if err := c.notifier.NotifyMutation(ctx, m); err != nil {
			c.log.ErrorObj("mutation notification failed", "notify_error", map[string]any{
				"method":   method,
				"endpoint": endpoint,
				"error":    err.Error(),
			})
		}
	}
	return res.data, nil
}

// CacheKey returns the canonical key for a GET of endpoint with params.
// Parameter order does not matter and nil values are ignored.
func (c *Client) CacheKey(endpoint string, params Params) string {
	u, err := buildURL(c.cfg.BaseURL, endpoint, stripNil(params))
	if err != nil {
		return c.cfg.BaseURL + endpoint
	}
	return u.String()
}

// HasCachedData reports whether key holds a fresh entry.
func (c *Client) HasCachedData(key string) bool {
	_, ok := c.cache.get(key)
	return ok
}

// CacheTTL returns the time left before key expires, or zero.
func (c *Client) CacheTTL(key string) time.Duration {
	return c.cache.remaining(key)
}

// ClearCache drops every cached entry.
func (c *Client) ClearCache() {
	c.cache.clear()
}

// ClearCacheEntry drops a single entry.
func (c *Client) ClearCacheEntry(key string) {
	c.cache.remove(key)
}

// ClearExpiredCache evicts stale entries and returns how many were removed.
// It is never called automatically.
func (c *Client) ClearExpiredCache() int {
	return c.cache.clearExpired()
}

// InvalidateRelatedCache drops every entry whose key contains the
// endpoint's resource path and returns how many were removed.
func (c *Client) InvalidateRelatedCache(endpoint string) int {
	return c.cache.removeContaining(resourcePath(endpoint))
}

// Get performs a typed GET. A nil schema decodes the payload into T without
// rejecting unknown keys.
func Get[T any](ctx context.Context, c *Client, endpoint string, params Params, schema Validator[T], opts ...RequestOption) (T, error) {
	if schema != nil {
		opts = append(opts, WithResponseSchema(schema))
	}
	v, err := c.Get(ctx, endpoint, params, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return coerce(v, schema)
}

// Post performs a typed POST.
func Post[T any](ctx context.Context, c *Client, endpoint string, data any, schema Validator[T], opts ...RequestOption) (T, error) {
	return typedMutation(ctx, c.Post, endpoint, data, schema, opts)
}

// Put performs a typed PUT.
func Put[T any](ctx context.Context, c *Client, endpoint string, data any, schema Validator[T], opts ...RequestOption) (T, error) {
	return typedMutation(ctx, c.Put, endpoint, data, schema, opts)
}

// Patch performs a typed PATCH.
func Patch[T any](ctx context.Context, c *Client, endpoint string, data any, schema Validator[T], opts ...RequestOption) (T, error) {
	return typedMutation(ctx, c.Patch, endpoint, data, schema, opts)
}

// Delete performs a typed DELETE.
func Delete[T any](ctx context.Context, c *Client, endpoint string, data any, schema Validator[T], opts ...RequestOption) (T, error) {
	return typedMutation(ctx, c.Delete, endpoint, data, schema, opts)
}

type mutationFunc func(ctx context.Context, endpoint string, data any, opts ...RequestOption) (any, error)

func typedMutation[T any](ctx context.Context, fn mutationFunc, endpoint string, data any, schema Validator[T], opts []RequestOption) (T, error) {
	if schema != nil {
		opts = append(opts, WithResponseSchema(schema))
	}
	v, err := fn(ctx, endpoint, data, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return coerce(v, schema)
}

// coerce converts a pipeline value into T. Values cached by an untyped call
// or a different schema are parsed again.
func coerce[T any](v any, schema Validator[T]) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var zero T
	if schema == nil {
		if v == nil {
			return zero, nil
		}
		schema = Struct[T]().AllowUnknown()
	}
	t, err := schema.Parse(v)
	if err != nil {
		return zero, validationError(v, err, "")
	}
	return t, nil
}
