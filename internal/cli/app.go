package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jwtly10/gh-relay/internal/client"
	"github.com/jwtly10/gh-relay/internal/config"
)

type App struct {
	Cfg    *config.ClientConfig
	client *client.Client
	out    io.Writer

	logger *slog.Logger
}

func NewApp(cfg *config.ClientConfig, out io.Writer, logger *slog.Logger) *App {
	return &App{
		Cfg:    cfg,
		client: client.NewClient(cfg, logger),
		out:    out,
		logger: logger,
	}
}

// Run performs the action selected by the flags and prints the outcome
func (a *App) Run(ctx context.Context) error {
	if a.Cfg.ShowHistory {
		entries, err := a.client.History(ctx)
		if err != nil {
			a.logger.Error("failed to fetch history", "error", err)
			printError(a.out, err)
			return err
		}
		printHistory(a.out, entries)
		return nil
	}

	req := a.Cfg.Request
	a.logger.Info("relaying request", "method", req.Method, "url", req.URL, "ws", a.Cfg.UseWS)

	value, err := a.client.Invoke(ctx, req)
	if err != nil {
		a.logger.Error("relay failed", "error", err)
		printError(a.out, err)
		return err
	}

	if err := printResult(a.out, value); err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}
	return nil
}
