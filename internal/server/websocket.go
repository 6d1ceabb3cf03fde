package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/jwtly10/gh-relay/internal/proto"
	"github.com/jwtly10/gh-relay/internal/server/middleware"
)

// wsConn serialises writes from concurrent invocations on one socket
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(msg proto.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.ws, msg)
}

// HandleWS handles websocket connections from the front-end
func (s *Server) HandleWS() http.Handler {
	return websocket.Server{
		// Browser origins were already checked by the CORS middleware; accept
		// native callers that send no Origin at all
		Handshake: func(cfg *websocket.Config, r *http.Request) error {
			cfg.Origin, _ = websocket.Origin(cfg, r)
			return nil
		},
		Handler: s.handleWS,
	}
}

func (s *Server) handleWS(ws *websocket.Conn) {
	if !s.trackSocket() {
		ws.Close()
		return
	}
	defer s.sockets.Done()

	connID := middleware.RequestID(ws.Request().Context())
	ctx, cancel := context.WithCancel(ws.Request().Context())

	// Closing the socket unblocks Receive below
	stop := context.AfterFunc(s.baseCtx, func() {
		cancel()
		ws.Close()
	})

	var inflight sync.WaitGroup
	defer func() {
		// Abandon outstanding GitHub calls once the caller is gone
		stop()
		cancel()
		inflight.Wait()
		ws.Close()
	}()

	conn := &wsConn{ws: ws}
	s.logger.Info("websocket connected", "conn_id", connID)

	for {
		var msg proto.Message
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.logger.Warn("malformed websocket message", "conn_id", connID, "error", err)
				if err := conn.send(proto.Message{Type: proto.MessageTypeError, Error: "malformed message: " + err.Error()}); err != nil {
					return
				}
				continue
			}

			if err == io.EOF {
				s.logger.Info("websocket disconnected", "conn_id", connID)
			} else {
				s.logger.Info("websocket error", "conn_id", connID, "error", err)
			}
			return
		}

		switch msg.Type {
		case proto.MessageTypePing:
			if err := conn.send(proto.Message{Type: proto.MessageTypePong, ID: msg.ID}); err != nil {
				s.logger.Error("failed to send websocket message", "error", err)
				return
			}

		case proto.MessageTypePong:
			s.logger.Debug("received pong message", "conn_id", connID)

		case proto.MessageTypeInvoke:
			if msg.ID == "" {
				msg.ID = uuid.NewString()
			}

			inflight.Add(1)
			go func(msg proto.Message) {
				defer inflight.Done()
				s.replyWS(ctx, conn, msg)
			}(msg)

		default:
			s.logger.Warn("unknown message type", "conn_id", connID, "type", msg.Type)
			if err := conn.send(proto.Message{Type: proto.MessageTypeError, ID: msg.ID, Error: "unknown message type: " + string(msg.Type)}); err != nil {
				return
			}
		}
	}
}

func (s *Server) replyWS(ctx context.Context, conn *wsConn, msg proto.Message) {
	value, err := s.dispatch(ctx, call{
		id:        msg.ID,
		transport: transportWS,
		command:   msg.Command,
		payload:   msg.Payload,
	})

	reply := proto.Message{Type: proto.MessageTypeResult, ID: msg.ID, Payload: value}
	if err != nil {
		reply = proto.Message{Type: proto.MessageTypeError, ID: msg.ID, Error: err.Error()}
	}

	if err := conn.send(reply); err != nil {
		s.logger.Debug("failed to send websocket reply", "id", msg.ID, "error", err)
	}
}
