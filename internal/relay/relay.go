// Package relay forwards request descriptions from the front-end to GitHub
// and hands back the decoded response body.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// DefaultUserAgent is sent when the caller supplies no User-Agent header
const DefaultUserAgent = "AstroBoxCreatorConsole"

// allowedPrefixes are compared against the raw URL string, never a parsed host
var allowedPrefixes = []string{
	"https://api.github.com/",
	"https://github.com/",
}

// Request describes a single outbound call. A nil Body means no body is sent.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    *string           `json:"body,omitempty"`
}

type Handler struct {
	client    *http.Client
	userAgent string
}

// NewHandler creates a relay handler. A nil client gets a fresh http.Client with
// no timeout, and an empty userAgent falls back to DefaultUserAgent.
func NewHandler(client *http.Client, userAgent string) *Handler {
	if client == nil {
		client = &http.Client{}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Handler{
		client:    client,
		userAgent: userAgent,
	}
}

// IsAllowedURL reports whether u starts with one of the allowed GitHub prefixes
func IsAllowedURL(u string) bool {
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}

// Validate checks everything that can be checked without touching the network
func (r Request) Validate() error {
	if !IsAllowedURL(r.URL) {
		return ErrInvalidTarget
	}

	// A method is a token, the same grammar as a header field name
	if !httpguts.ValidHeaderFieldName(r.Method) {
		return &MethodError{Method: r.Method}
	}

	for k, v := range r.Headers {
		if !httpguts.ValidHeaderFieldName(k) || !httpguts.ValidHeaderFieldValue(v) {
			return &HeaderError{Name: k}
		}
	}

	return nil
}

// Do validates req, sends it and returns the response body as JSON.
// Success bodies that are not valid JSON come back as a JSON string.
func (h *Handler) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		body = strings.NewReader(*req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	hasUserAgent := false
	for k, v := range req.Headers {
		if strings.EqualFold(k, "user-agent") {
			hasUserAgent = true
		}
		// Keys differing only in case are both sent
		httpReq.Header.Add(k, v)
	}

	if !hasUserAgent {
		httpReq.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       string(text),
		}
	}

	return decodeBody(text), nil
}

func decodeBody(text []byte) json.RawMessage {
	if json.Valid(text) {
		return json.RawMessage(bytes.TrimSpace(text))
	}

	// Marshalling a string cannot fail; invalid UTF-8 is replaced with U+FFFD
	quoted, _ := json.Marshal(string(text))
	return quoted
}
