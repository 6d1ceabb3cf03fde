package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/jwtly10/gh-relay/internal/proto"
)

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(env.ts.URL, "http://", "ws://", 1) + "/ws"
	cfg, err := websocket.NewConfig(wsURL, env.ts.URL)
	require.NoError(t, err)

	ws, err := websocket.DialConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	ws.SetDeadline(time.Now().Add(10 * time.Second))
	return ws
}

func invokeMessage(id, command, payload string) proto.Message {
	return proto.Message{
		Type:    proto.MessageTypeInvoke,
		ID:      id,
		Command: command,
		Payload: json.RawMessage(payload),
	}
}

func TestWebSocketInvoke(t *testing.T) {
	env := setupTestEnv(t, false)
	ws := dialWS(t, env)

	msg := invokeMessage("1", proto.CommandGithubRequest, `{"request":{"method":"GET","url":"https://api.github.com/repos/x/y"}}`)
	require.NoError(t, websocket.JSON.Send(ws, msg))

	var reply proto.Message
	require.NoError(t, websocket.JSON.Receive(ws, &reply))
	require.Equal(t, proto.MessageTypeResult, reply.Type)
	require.Equal(t, "1", reply.ID)
	require.JSONEq(t, `{"id":1}`, string(reply.Payload))
}

func TestWebSocketErrors(t *testing.T) {
	tests := []struct {
		name      string
		msg       proto.Message
		wantError string
	}{
		{
			name:      "test upstream failure",
			msg:       invokeMessage("a", proto.CommandGithubRequest, `{"request":{"method":"GET","url":"https://api.github.com/missing"}}`),
			wantError: "404",
		},
		{
			name:      "test disallowed target",
			msg:       invokeMessage("b", proto.CommandGithubRequest, `{"request":{"method":"GET","url":"https://evil.com/api.github.com/"}}`),
			wantError: "Only GitHub endpoints are allowed",
		},
		{
			name:      "test unknown command",
			msg:       invokeMessage("c", "open_window", `{}`),
			wantError: "unknown command: open_window",
		},
		{
			name:      "test unknown message type",
			msg:       proto.Message{Type: "subscribe", ID: "d"},
			wantError: "unknown message type: subscribe",
		},
	}

	env := setupTestEnv(t, false)
	ws := dialWS(t, env)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, websocket.JSON.Send(ws, tt.msg))

			var reply proto.Message
			require.NoError(t, websocket.JSON.Receive(ws, &reply))
			require.Equal(t, proto.MessageTypeError, reply.Type)
			require.Equal(t, tt.msg.ID, reply.ID)
			require.Contains(t, reply.Error, tt.wantError)
		})
	}
}

func TestWebSocketPingAndMalformedMessages(t *testing.T) {
	env := setupTestEnv(t, false)
	ws := dialWS(t, env)

	require.NoError(t, websocket.Message.Send(ws, `{"type":`))

	var reply proto.Message
	require.NoError(t, websocket.JSON.Receive(ws, &reply))
	require.Equal(t, proto.MessageTypeError, reply.Type)
	require.Contains(t, reply.Error, "malformed message")

	// The connection survives a malformed frame
	require.NoError(t, websocket.JSON.Send(ws, proto.Message{Type: proto.MessageTypePing, ID: "p1"}))
	require.NoError(t, websocket.JSON.Receive(ws, &reply))
	require.Equal(t, proto.MessageTypePong, reply.Type)
	require.Equal(t, "p1", reply.ID)
}

func TestWebSocketConcurrentInvocations(t *testing.T) {
	env := setupTestEnv(t, true)
	ws := dialWS(t, env)

	ids := []string{"r1", "r2", "r3", "r4"}
	for _, id := range ids {
		msg := invokeMessage(id, proto.CommandGithubRequest, `{"request":{"method":"GET","url":"https://api.github.com/repos/x/y"}}`)
		require.NoError(t, websocket.JSON.Send(ws, msg))
	}

	seen := map[string]bool{}
	for range ids {
		var reply proto.Message
		require.NoError(t, websocket.JSON.Receive(ws, &reply))
		require.Equal(t, proto.MessageTypeResult, reply.Type)
		seen[reply.ID] = true
	}
	for _, id := range ids {
		require.True(t, seen[id], "missing reply for %s", id)
	}

	entries, err := env.store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, len(ids))
	for _, e := range entries {
		require.Equal(t, "ws", e.Transport)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	env := setupTestEnv(t, false)

	wsURL := strings.Replace(env.ts.URL, "http://", "ws://", 1) + "/ws"
	cfg, err := websocket.NewConfig(wsURL, "https://evil.example")
	require.NoError(t, err)

	_, err = websocket.DialConfig(cfg)
	require.Error(t, err)
}

func TestShutdownClosesSocketsAndWaitsForInflightCalls(t *testing.T) {
	env := setupTestEnv(t, true)
	ws := dialWS(t, env)

	msg := invokeMessage("slow", proto.CommandGithubRequest, `{"request":{"method":"GET","url":"https://api.github.com/slow"}}`)
	require.NoError(t, websocket.JSON.Send(ws, msg))

	select {
	case <-env.slowStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("GitHub never saw the slow request")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.srv.Shutdown(ctx))

	// The cancelled call was recorded before Shutdown returned
	entries, err := env.store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "transport", entries[0].Outcome)

	// The socket is closed by the host
	var reply proto.Message
	for {
		if err := websocket.JSON.Receive(ws, &reply); err != nil {
			break
		}
	}
}

func TestShutdownRefusesNewSockets(t *testing.T) {
	env := setupTestEnv(t, false)
	require.NoError(t, env.srv.Shutdown(context.Background()))

	ws := dialWS(t, env)
	var reply proto.Message
	require.Error(t, websocket.JSON.Receive(ws, &reply))
}
