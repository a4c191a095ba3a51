package transport

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
)

// Hub methods callable by clients.
const (
	MethodStartStream = "startStream"
	MethodStopStream  = "stopStream"
	MethodPing        = "ping"
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id,omitempty"`
}

// Notification is a server push. It carries no id and expects no reply.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Message is the client-side view of any inbound frame. Responses carry an
// id; notifications carry a method and no id.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsNotification reports whether the frame is a server push.
func (m Message) IsNotification() bool {
	return m.Method != "" && len(m.ID) == 0
}

// StartStreamParams selects the collection to stream.
type StartStreamParams struct {
	Kind string `json:"kind"`
}

// StartStreamResult acknowledges a startStream request. Acceptance only
// means the request was received; a rejected stream is reported in-band.
type StartStreamResult struct {
	Accepted bool `json:"accepted"`
}

// PingResult answers a ping.
type PingResult struct {
	Timestamp string `json:"timestamp"`
}

// ParseRequest parses and validates a JSON-RPC request frame.
func ParseRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("parse error: %w", err)
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return Request{}, fmt.Errorf("invalid request")
	}
	return req, nil
}

// ParseMessage decodes an inbound frame on the client side.
func ParseMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("parse error: %w", err)
	}
	if msg.JSONRPC != "2.0" {
		return Message{}, fmt.Errorf("invalid message: jsonrpc %q", msg.JSONRPC)
	}
	return msg, nil
}

// NewResult builds a success response.
func NewResult(id any, result any) Response {
	return Response{JSONRPC: "2.0", Result: result, ID: id}
}

// NewError builds an error response.
func NewError(id any, code int, message string, data any) Response {
	return Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// NewNotification builds a server push frame.
func NewNotification(method string, params any) Notification {
	return Notification{JSONRPC: "2.0", Method: method, Params: params}
}
