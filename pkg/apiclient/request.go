package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/tradedesk-client/pkg/httpclient"
)

// requestResult carries the unwrapped payload, its schema-parsed form and
// the request key it was sent with.
type requestResult struct {
	raw        any
	data       any
	requestKey string
}

// request performs exactly one network round trip. Query params are only
// applied to GET requests.
func (c *Client) request(ctx context.Context, method, endpoint string, params Params, body any, o *requestOptions) (requestResult, error) {
	if method != http.MethodGet {
		params = nil
	}
	target, err := buildURL(c.cfg.BaseURL, endpoint, params)
	if err != nil {
		return requestResult{}, transportError(err)
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return requestResult{}, transportError(fmt.Errorf("encode request body: %w", err))
		}
	}

	nonce := c.nonce.Generate()
	if nonce.Value == "" {
		c.log.WarnObj("nonce generation exhausted attempts", "nonce", map[string]any{
			"request_key": nonce.RequestKey,
			"attempts":    nonce.Attempts,
		})
	}
	headers := c.buildHeaders(ctx, method, payload != nil, nonce, o.headers)

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.Do(reqCtx, httpclient.Request{
		Method:  method,
		URL:     target.String(),
		Headers: headers,
		Body:    payload,
	})
	if err != nil {
		apiErr := c.classifyTransportError(ctx, err)
		c.log.WarnObj("api request failed", "request_error", map[string]any{
			"method":   method,
			"endpoint": endpoint,
			"kind":     apiErr.Kind.String(),
			"error":    err.Error(),
		})
		return requestResult{}, apiErr
	}

	data, err := parseBody(resp)
	if err != nil {
		return requestResult{}, transportError(err)
	}

	if err := c.waitRoundTripFloor(ctx, start); err != nil {
		return requestResult{}, transportError(err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		c.log.WarnObj("api request returned error status", "request_status", map[string]any{
			"method":   method,
			"endpoint": endpoint,
			"status":   status,
		})
		return requestResult{}, &APIError{
			Kind:       KindHTTP,
			Status:     status,
			StatusText: statusText(resp),
			Data:       data,
		}
	}

	raw := data
	if o.response != nil {
		parsed, err := o.response(data)
		if err != nil {
			c.log.WarnObj("api response failed validation", "validation_error", map[string]any{
				"method":   method,
				"endpoint": endpoint,
				"error":    err.Error(),
			})
			return requestResult{}, validationError(data, err, "")
		}
		data = parsed
	}

	return requestResult{raw: raw, data: data, requestKey: nonce.RequestKey}, nil
}

func (c *Client) buildHeaders(ctx context.Context, method string, hasBody bool, nonce Nonce, extra map[string]string) map[string]string {
	headers := make(map[string]string, len(extra)+8)
	for k, v := range extra {
		headers[http.CanonicalHeaderKey(k)] = v
	}

	headers["Accept"] = "application/json"
	if _, ok := headers["Content-Type"]; hasBody && !ok {
		headers["Content-Type"] = "application/json"
	}
	if method != http.MethodGet {
		headers["Cache-Control"] = "no-cache, no-store, must-revalidate"
		headers["Pragma"] = "no-cache"
	}

	if _, ok := headers["Authorization"]; !ok && c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			c.log.WarnObj("session token lookup failed", "error", err.Error())
		} else if token != "" {
			headers["Authorization"] = "Bearer " + token
		}
	}

	for k, v := range nonce.Headers() {
		headers[k] = v
	}
	return headers
}

// classifyTransportError separates deadline expiry from every other failure.
// Cancellation of the caller's own context is a transport error.
func (c *Client) classifyTransportError(parent context.Context, err error) *APIError {
	if errors.Is(err, context.Canceled) && parent.Err() != nil {
		return transportError(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err, c.cfg.Timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutError(err, c.cfg.Timeout)
	}
	return transportError(err)
}

// waitRoundTripFloor blocks until at least MinRoundTrip has elapsed since start.
func (c *Client) waitRoundTripFloor(ctx context.Context, start time.Time) error {
	remaining := c.cfg.MinRoundTrip - time.Since(start)
	if remaining <= 0 {
		return nil
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseBody applies the envelope convention: only objects carrying a
// "success" key yield a value, read from data, then result, then the root.
func parseBody(resp httpclient.Response) (any, error) {
	if resp.StatusCode() == http.StatusNoContent || resp.Header().Get("Content-Length") == "0" {
		return nil, nil
	}
	if !isJSONContentType(resp.Header().Get("Content-Type")) {
		return nil, nil
	}
	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode json response: %w", err)
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, nil
	}
	if _, ok := obj["success"]; !ok {
		return nil, nil
	}
	if v := obj["data"]; v != nil {
		return v, nil
	}
	if v := obj["result"]; v != nil {
		return v, nil
	}
	return obj, nil
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func statusText(resp httpclient.Response) string {
	code := resp.StatusCode()
	if s := strings.TrimSpace(strings.TrimPrefix(resp.Status(), strconv.Itoa(code))); s != "" {
		return s
	}
	return http.StatusText(code)
}
