package client

import (
	"context"
	"encoding/json"
)

// ConnState is a connection lifecycle event.
type ConnState string

const (
	StateConnected     ConnState = "connected"
	StateDisconnecting ConnState = "disconnecting"
	StateReconnecting  ConnState = "reconnecting"
	StateReconnected   ConnState = "reconnected"
	StateClosed        ConnState = "closed"
)

// Up reports whether the state leaves the connection usable.
func (s ConnState) Up() bool {
	return s == StateConnected || s == StateReconnected
}

// Listener receives pushed events and lifecycle changes from a Transport.
// OnEvent calls for one stream arrive sequentially and in order.
type Listener interface {
	OnEvent(event string, payload json.RawMessage)
	OnStateChange(state ConnState)
}

// Transport carries hub calls and pushes. RemoteTransport talks to a hub
// over a websocket; LocalTransport drives an in-process session.
type Transport interface {
	Connect(ctx context.Context, listener Listener) error
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	Connected() bool
	Close() error
}
