package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/domain/stream"
	"github.com/rpggio/dirstream/internal/transport"
)

// LocalTransport drives a session of an in-process stream.Handler. Every
// payload is JSON encoded on the way out, so consumers see exactly what a
// websocket client would.
type LocalTransport struct {
	handler *stream.Handler
	logger  *slog.Logger

	mu       sync.Mutex
	session  *stream.Session
	listener Listener
	streams  sync.WaitGroup
}

// NewLocalTransport creates a transport over handler.
func NewLocalTransport(handler *stream.Handler, logger *slog.Logger) *LocalTransport {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalTransport{handler: handler, logger: logger}
}

// Connect opens a session. It is a no-op while connected.
func (t *LocalTransport) Connect(_ context.Context, listener Listener) error {
	t.mu.Lock()
	if t.session != nil {
		t.mu.Unlock()
		return nil
	}
	caller := &localCaller{listener: listener}
	t.session = t.handler.Open(context.Background(), "local-"+uuid.NewString(), caller)
	t.listener = listener
	t.mu.Unlock()

	listener.OnStateChange(StateConnected)
	return nil
}

// Connected reports whether a session is open.
func (t *LocalTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session != nil
}

// Call dispatches a hub method to the session.
func (t *LocalTransport) Call(_ context.Context, method string, params any) (json.RawMessage, error) {
	t.mu.Lock()
	sess := t.session
	t.mu.Unlock()
	if sess == nil {
		return nil, ErrNotConnected
	}

	switch method {
	case transport.MethodStartStream:
		var p transport.StartStreamParams
		if err := roundTrip(params, &p); err != nil {
			return nil, &transport.Error{Code: transport.ErrInvalidParams, Message: "invalid params", Data: err.Error()}
		}
		kind, err := directory.ParseKind(p.Kind)
		if err != nil {
			return nil, &transport.Error{Code: transport.ErrInvalidParams, Message: err.Error()}
		}
		// The session is claimed before the acknowledgement; the stream
		// waits for the acknowledgement to be built.
		claim := sess.Claim(context.Background())
		ready := make(chan struct{})
		defer close(ready)
		t.streams.Add(1)
		go func() {
			defer t.streams.Done()
			<-ready
			claim.Run(kind)
		}()
		return json.Marshal(transport.StartStreamResult{Accepted: true})
	case transport.MethodStopStream:
		sess.Stop()
		return json.RawMessage(`{}`), nil
	case transport.MethodPing:
		return json.Marshal(transport.PingResult{Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
	default:
		return nil, &transport.Error{Code: transport.ErrMethodNotFound, Message: fmt.Sprintf("method not found: %s", method)}
	}
}

// Close ends the session and waits for its streams to stop.
func (t *LocalTransport) Close() error {
	t.mu.Lock()
	sess := t.session
	listener := t.listener
	t.session = nil
	t.mu.Unlock()
	if sess == nil {
		return nil
	}

	listener.OnStateChange(StateDisconnecting)
	sess.Close()
	t.streams.Wait()
	listener.OnStateChange(StateClosed)
	return nil
}

// localCaller hands encoded envelopes to the listener one at a time.
type localCaller struct {
	mu       sync.Mutex
	listener Listener
}

func (c *localCaller) Send(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener.OnEvent(event, data)
	return nil
}

func roundTrip(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
