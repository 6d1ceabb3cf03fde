package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwtly10/gh-relay/internal/config"
	"github.com/jwtly10/gh-relay/internal/db"
	"github.com/jwtly10/gh-relay/internal/history"
	"github.com/jwtly10/gh-relay/internal/relay"
	"github.com/jwtly10/gh-relay/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Server.Logger

	// History is optional; without a path the host keeps nothing
	var store server.HistoryStore
	if cfg.Database.Path != "" {
		d, err := db.Initialize(cfg.Database)
		if err != nil {
			logger.Error("Failed to initialize history database", "error", err)
			os.Exit(1)
		}
		defer d.Close()
		store = history.NewHistoryRepository(d)
		logger.Info("History database initialized", "path", cfg.Database.Path)
	}

	// One client for every call; zero timeout leaves calls unbounded
	relayHandler := relay.NewHandler(&http.Client{Timeout: cfg.Server.Timeout}, cfg.Server.UserAgent)
	srv := server.NewServer(relayHandler, store, logger, &cfg.Server)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// main waits on done so the history database outlives every in-flight call
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down cleanly", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to close websocket connections", "error", err)
		}
	}()
	httpServer.RegisterOnShutdown(func() {
		// Start closing sockets while plain requests drain
		srv.Shutdown(context.Background())
	})

	logger.Info(fmt.Sprintf("Relay host listening on %s", cfg.Server.HTTPURL()),
		"allowed_origins", cfg.Server.AllowedOrigins,
		"timeout", cfg.Server.Timeout,
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Relay host stopped")
}
