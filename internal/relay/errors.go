package relay

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidTarget is returned when the request URL is not under one of the allowed origins.
// The message is surfaced to the front-end verbatim, so it stays capitalised.
var ErrInvalidTarget = errors.New("Only GitHub endpoints are allowed")

// MethodError is returned when the request method is not a valid HTTP token
type MethodError struct {
	Method string
}

func (e *MethodError) Error() string {
	return "Invalid HTTP method: " + e.Method
}

// HeaderError is returned when a header name or value can never be written on the wire
type HeaderError struct {
	Name string
}

func (e *HeaderError) Error() string {
	return "Invalid header: " + e.Name
}

// TransportError wraps a failure to send the request or read the response.
// Its message is the underlying transport's description.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError is returned when the destination answers with a non-2xx status
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("GitHub request failed (%s): %s", statusLine(e.StatusCode), e.Body)
}

func statusLine(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return fmt.Sprintf("%d <unknown status code>", code)
	}
	return fmt.Sprintf("%d %s", code, text)
}

// Kind names the category of a relay error, as recorded in the request history.
type Kind string

const (
	KindOK            Kind = "ok"
	KindInvalidTarget Kind = "invalid_target"
	KindInvalidMethod Kind = "invalid_method"
	KindInvalidHeader Kind = "invalid_header"
	KindTransport     Kind = "transport"
	KindUpstream      Kind = "upstream"
	KindUnknown       Kind = "unknown"
)

// KindOf classifies err. A nil error is KindOK.
func KindOf(err error) Kind {
	var (
		methodErr    *MethodError
		headerErr    *HeaderError
		transportErr *TransportError
		upstreamErr  *UpstreamError
	)

	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrInvalidTarget):
		return KindInvalidTarget
	case errors.As(err, &methodErr):
		return KindInvalidMethod
	case errors.As(err, &headerErr):
		return KindInvalidHeader
	case errors.As(err, &upstreamErr):
		return KindUpstream
	case errors.As(err, &transportErr):
		return KindTransport
	default:
		return KindUnknown
	}
}

// IsValidationError reports whether err was raised before any network activity
func IsValidationError(err error) bool {
	switch KindOf(err) {
	case KindInvalidTarget, KindInvalidMethod, KindInvalidHeader:
		return true
	}
	return false
}

// UpstreamStatus returns the upstream status code carried by err, or 0
func UpstreamStatus(err error) int {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.StatusCode
	}
	return 0
}
