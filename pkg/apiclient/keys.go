package apiclient

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Params are query parameters for GET requests. Nil values are dropped.
type Params map[string]any

// buildURL joins the base URL and endpoint and, when params is non-empty,
// merges them into the query string. url.Values.Encode sorts by key, which
// makes the result canonical for use as a cache key.
func buildURL(baseURL, endpoint string, params Params) (*url.URL, error) {
	raw := baseURL
	if endpoint != "" {
		raw += "/" + strings.TrimLeft(endpoint, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("build url for %q: %w", endpoint, err)
	}
	if len(params) == 0 {
		return u, nil
	}

	q := u.Query()
	for k, v := range params {
		addQueryValue(q, k, v)
	}
	u.RawQuery = q.Encode()
	return u, nil
}

func addQueryValue(q url.Values, key string, v any) {
	if isNil(v) {
		return
	}
	switch vv := v.(type) {
	case string:
		q.Add(key, vv)
	case []string:
		for _, s := range vv {
			q.Add(key, s)
		}
	case fmt.Stringer:
		q.Add(key, vv.String())
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				addQueryValue(q, key, rv.Index(i).Interface())
			}
			return
		}
		q.Add(key, fmt.Sprint(v))
	}
}

// stripNil returns a copy of params without nil-valued keys.
func stripNil(params Params) Params {
	if len(params) == 0 {
		return nil
	}
	out := make(Params, len(params))
	for k, v := range params {
		if isNil(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// resourcePath returns the first path segment of endpoint prefixed with a
// slash: "/accounts/123?x=1" becomes "/accounts". An endpoint without a
// segment yields "/", which matches every key.
func resourcePath(endpoint string) string {
	p := endpoint
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimLeft(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return "/" + p
}
