package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/jwtly10/gh-relay/internal/config"
	"github.com/jwtly10/gh-relay/internal/history"
	"github.com/jwtly10/gh-relay/internal/proto"
	"github.com/jwtly10/gh-relay/internal/relay"
)

// InvokeError is a failure reported by the relay host. Message is the text
// the relay produced, Status the HTTP status of the reply (0 over websocket).
type InvokeError struct {
	Status  int
	Message string
}

func (e *InvokeError) Error() string {
	return e.Message
}

type Client struct {
	cfg    *config.ClientConfig
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg *config.ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
}

// Invoke runs github_request on the relay host and returns the JSON result
func (c *Client) Invoke(ctx context.Context, req relay.Request) (json.RawMessage, error) {
	payload, err := json.Marshal(proto.Invocation{Request: &req})
	if err != nil {
		return nil, fmt.Errorf("could not marshal invocation: %w", err)
	}

	if c.cfg.UseWS {
		return c.invokeWS(ctx, payload)
	}
	return c.invokeHTTP(ctx, payload)
}

func (c *Client) invokeHTTP(ctx context.Context, payload []byte) (json.RawMessage, error) {
	u := c.cfg.InvokeURL(proto.CommandGithubRequest)
	c.logger.Info("invoking over http", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach relay host: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read relay reply: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, replyError(resp.StatusCode, body)
	}

	return body, nil
}

func (c *Client) invokeWS(ctx context.Context, payload []byte) (json.RawMessage, error) {
	wsConfig, err := c.cfg.NewWebSocketConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create websocket config: %w", err)
	}

	c.logger.Info("invoking over websocket", "url", wsConfig.Location.String())

	ws, err := wsConfig.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay host: %w", err)
	}
	defer ws.Close()

	// Unblock the read below if the caller gives up
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	id := uuid.NewString()
	if err := websocket.JSON.Send(ws, proto.Message{
		Type:    proto.MessageTypeInvoke,
		ID:      id,
		Command: proto.CommandGithubRequest,
		Payload: payload,
	}); err != nil {
		return nil, fmt.Errorf("failed to send invocation: %w", err)
	}

	for {
		var msg proto.Message
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to receive reply: %w", err)
		}

		if msg.ID != id {
			c.logger.Debug("ignoring unrelated message", "type", msg.Type, "id", msg.ID)
			continue
		}

		switch msg.Type {
		case proto.MessageTypeResult:
			return msg.Payload, nil
		case proto.MessageTypeError:
			return nil, &InvokeError{Message: msg.Error}
		default:
			return nil, fmt.Errorf("unexpected reply type: %s", msg.Type)
		}
	}
}

// History fetches recent relayed requests from the host
func (c *Client) History(ctx context.Context) ([]history.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.HistoryURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach relay host: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, replyError(resp.StatusCode, body)
	}

	var entries []history.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("could not unmarshal history: %w", err)
	}
	return entries, nil
}

func replyError(status int, body []byte) error {
	var reply proto.ErrorReply
	if err := json.Unmarshal(body, &reply); err != nil || reply.Error == "" {
		return &InvokeError{Status: status, Message: fmt.Sprintf("relay host replied %d: %s", status, bytes.TrimSpace(body))}
	}
	return &InvokeError{Status: status, Message: reply.Error}
}
