package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an APIError.
type ErrorKind int

const (
	// KindTransport covers network failures (DNS, refused, reset, malformed body).
	KindTransport ErrorKind = iota
	// KindTimeout is a request aborted after the configured timeout.
	KindTimeout
	// KindHTTP is a non-2xx response from the server.
	KindHTTP
	// KindValidation is a payload that failed its schema.
	KindValidation
)

// Status codes carried by the synthetic error kinds.
const (
	StatusTransport  = 0
	StatusTimeout    = http.StatusRequestTimeout
	StatusValidation = http.StatusUnprocessableEntity
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindValidation:
		return "validation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// APIError is the only error type returned by the request pipeline.
type APIError struct {
	Kind       ErrorKind
	Status     int
	StatusText string
	// Data is the parsed response body for KindHTTP and the received payload
	// for KindValidation.
	Data   any
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api %s error: status %d", e.Kind, e.Status)
	if e.StatusText != "" {
		msg += " " + e.StatusText
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil && e.Detail == "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTimeout reports whether err is a timeout-classified APIError.
func IsTimeout(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == KindTimeout
}

// IsValidation reports whether err is a validation-classified APIError.
func IsValidation(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == KindValidation
}

// IsHTTPStatus reports whether err is a server response with the given status.
func IsHTTPStatus(err error, status int) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == KindHTTP && apiErr.Status == status
}

func transportError(err error) *APIError {
	return &APIError{Kind: KindTransport, Status: StatusTransport, Detail: err.Error(), Err: err}
}

func timeoutError(err error, after fmt.Stringer) *APIError {
	return &APIError{
		Kind:       KindTimeout,
		Status:     StatusTimeout,
		StatusText: http.StatusText(StatusTimeout),
		Detail:     "request timed out after " + after.String(),
		Err:        err,
	}
}

func validationError(data any, err error, scope string) *APIError {
	detail := err.Error()
	if scope != "" {
		detail = scope + ": " + detail
	}
	return &APIError{
		Kind:       KindValidation,
		Status:     StatusValidation,
		StatusText: http.StatusText(StatusValidation),
		Data:       data,
		Detail:     detail,
		Err:        err,
	}
}
