package proto

import (
	"encoding/json"

	"github.com/jwtly10/gh-relay/internal/relay"
)

type MessageType string

const (
	MessageTypePing MessageType = "ping"
	MessageTypePong MessageType = "pong"

	MessageTypeInvoke MessageType = "invoke"
	MessageTypeResult MessageType = "result"

	MessageTypeError MessageType = "error"
)

// CommandGithubRequest is the only command the relay host answers
const CommandGithubRequest = "github_request"

// Message is a single websocket frame between the front-end and the relay host
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Invocation is the argument object of a github_request call,
// shaped like the front-end's invoke("github_request", {request})
type Invocation struct {
	Request *relay.Request `json:"request"`
}

// ErrorReply is the body of a failed call over plain HTTP
type ErrorReply struct {
	Error string `json:"error"`
}
