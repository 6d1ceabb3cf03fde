package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/jwtly10/gh-relay/internal/config"
	"github.com/jwtly10/gh-relay/internal/history"
	"github.com/jwtly10/gh-relay/internal/relay"
	"github.com/jwtly10/gh-relay/internal/server/middleware"
)

// HistoryStore records relayed invocations. The server runs without one when
// history is disabled.
type HistoryStore interface {
	Record(e *history.Entry) (*history.Entry, error)
	Recent(limit int) ([]history.Entry, error)
}

type Server struct {
	relay   *relay.Handler
	history HistoryStore
	handler http.Handler

	logger *slog.Logger
	cfg    *config.ServerConfig

	// baseCtx is cancelled on shutdown to close open websocket connections,
	// which the http.Server no longer tracks once hijacked
	baseCtx context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	closing bool
	sockets sync.WaitGroup
}

// NewServer wires the invocation endpoints. store may be nil.
func NewServer(relayHandler *relay.Handler, store HistoryStore, logger *slog.Logger, cfg *config.ServerConfig) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	s := &Server{
		relay:   relayHandler,
		history: store,
		logger:  logger,
		cfg:     cfg,
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("POST /invoke/{command}", s.handleInvoke)
	mux.Handle("GET /ws", s.HandleWS())
	mux.HandleFunc("GET /history", s.handleHistory)

	var h http.Handler = mux
	h = middleware.WithCORS(h, cfg)
	h = middleware.WithLogging(h, logger)
	h = middleware.WithRequestID(h)
	s.handler = h

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Shutdown closes open websocket connections, cancelling their in-flight
// invocations, and waits for them to finish or for ctx to expire.
// Plain HTTP requests are drained by http.Server.Shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.sockets.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trackSocket registers a websocket connection, refusing it once shutdown began
func (s *Server) trackSocket() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sockets.Add(1)
	return true
}
