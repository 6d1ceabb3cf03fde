package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jwtly10/gh-relay/internal/history"
	"github.com/jwtly10/gh-relay/internal/proto"
	"github.com/jwtly10/gh-relay/internal/relay"
	"github.com/jwtly10/gh-relay/internal/server/middleware"
)

// maxInvocationSize bounds the invocation payload read from the front-end
const maxInvocationSize = 32 << 20

const (
	transportHTTP = "http"
	transportWS   = "ws"
)

// call is one invocation as received by either transport
type call struct {
	id        string
	transport string
	command   string
	payload   []byte
}

// boundaryError is a malformed invocation, rejected before the relay sees it
type boundaryError struct {
	status int
	msg    string
}

func (e *boundaryError) Error() string {
	return e.msg
}

// dispatch decodes and runs a call against the relay, recording the outcome
func (s *Server) dispatch(ctx context.Context, c call) (json.RawMessage, error) {
	if c.command != proto.CommandGithubRequest {
		return nil, &boundaryError{status: http.StatusNotFound, msg: fmt.Sprintf("unknown command: %s", c.command)}
	}

	var inv proto.Invocation
	if err := json.Unmarshal(c.payload, &inv); err != nil {
		return nil, &boundaryError{status: http.StatusBadRequest, msg: fmt.Sprintf("invalid invocation payload: %v", err)}
	}
	if inv.Request == nil {
		return nil, &boundaryError{status: http.StatusBadRequest, msg: "invalid invocation payload: missing request"}
	}

	start := time.Now()
	value, err := s.relay.Do(ctx, *inv.Request)
	s.finish(c, *inv.Request, err, time.Since(start))

	return value, err
}

// finish logs the outcome of a relayed call and adds it to the history
func (s *Server) finish(c call, req relay.Request, err error, elapsed time.Duration) {
	kind := relay.KindOf(err)
	target := stripQuery(req.URL)

	attrs := []any{
		"id", c.id,
		"transport", c.transport,
		"method", req.Method,
		"url", target,
		"outcome", kind,
		"duration", elapsed,
	}
	if status := relay.UpstreamStatus(err); status != 0 {
		attrs = append(attrs, "upstream_status", status)
	}

	if err != nil {
		s.logger.Warn("relay failed", append(attrs, "error", err)...)
	} else {
		s.logger.Info("relayed request", attrs...)
	}

	if s.history == nil {
		return
	}

	entry := &history.Entry{
		InvocationID:   c.id,
		Transport:      c.transport,
		Method:         req.Method,
		URL:            target,
		Outcome:        string(kind),
		UpstreamStatus: relay.UpstreamStatus(err),
		Duration:       elapsed.Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if _, herr := s.history.Record(entry); herr != nil {
		s.logger.Error("failed to record history", "id", c.id, "error", herr)
	}
}

// statusFor maps a dispatch error onto the HTTP status of the reply
func statusFor(err error) int {
	var be *boundaryError
	if errors.As(err, &be) {
		return be.status
	}
	if relay.IsValidationError(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInvocationSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, proto.ErrorReply{Error: "invocation payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, proto.ErrorReply{Error: "failed to read invocation payload"})
		return
	}

	value, err := s.dispatch(r.Context(), call{
		id:        middleware.RequestID(r.Context()),
		transport: transportHTTP,
		command:   r.PathValue("command"),
		payload:   body,
	})
	if err != nil {
		writeJSON(w, statusFor(err), proto.ErrorReply{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(value)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, proto.ErrorReply{Error: "history is disabled"})
		return
	}

	limit := history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, proto.ErrorReply{Error: "invalid limit: " + v})
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(limit)
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		writeJSON(w, http.StatusInternalServerError, proto.ErrorReply{Error: "failed to list history"})
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// stripQuery drops the query string so credentials passed as parameters never
// reach logs or history
func stripQuery(u string) string {
	base, _, _ := strings.Cut(u, "?")
	return base
}
