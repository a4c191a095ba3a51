package client

import "errors"

var (
	// ErrNotConnected indicates an operation that needs an open connection.
	ErrNotConnected = errors.New("not connected to stream hub")
	// ErrConnectionLost indicates the connection dropped while a call or stream was in flight.
	ErrConnectionLost = errors.New("connection lost")
	// ErrInvalidPayload indicates a pushed envelope that failed to decode or validate.
	ErrInvalidPayload = errors.New("invalid payload")
)

// StreamError carries the message of a terminal error envelope.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}
