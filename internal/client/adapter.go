package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/domain/stream"
	"github.com/rpggio/dirstream/internal/transport"
)

// Adapter relays hub envelopes to registered callbacks. Callbacks run on
// the transport's delivery goroutine, in registration order, and must not
// block on further calls through the same adapter.
type Adapter struct {
	transport Transport
	logger    *slog.Logger

	mu        sync.Mutex
	connected bool
	streaming bool

	users      registry[func(stream.Chunk[directory.User])]
	projects   registry[func(stream.Chunk[directory.Project])]
	completes  registry[func(directory.Kind)]
	errs       registry[func(error)]
	lifecycles registry[func(ConnState)]
}

// NewAdapter creates an adapter over t.
func NewAdapter(t Transport, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{transport: t, logger: logger}
}

// Connect opens the connection. A second call while connected is a no-op.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.IsConnected() {
		return nil
	}
	if err := a.transport.Connect(ctx, adapterListener{a}); err != nil {
		return err
	}
	return nil
}

// Disconnect clears every registered callback and closes the connection.
func (a *Adapter) Disconnect() error {
	a.users.clear()
	a.projects.clear()
	a.completes.clear()
	a.errs.clear()
	a.lifecycles.clear()

	err := a.transport.Close()
	a.mu.Lock()
	a.connected = false
	a.streaming = false
	a.mu.Unlock()
	return err
}

// OnUserReceived registers a callback for every user envelope.
func (a *Adapter) OnUserReceived(fn func(stream.Chunk[directory.User])) func() {
	return a.users.add(fn)
}

// OnProjectReceived registers a callback for every project envelope.
func (a *Adapter) OnProjectReceived(fn func(stream.Chunk[directory.Project])) func() {
	return a.projects.add(fn)
}

// OnComplete registers a callback invoked once per terminal envelope, after
// the envelope callbacks for it.
func (a *Adapter) OnComplete(fn func(directory.Kind)) func() {
	return a.completes.add(fn)
}

// OnError registers a callback for adapter-level faults: not connected,
// failed calls, lost connections and invalid payloads. Error envelopes are
// delivered to the envelope callbacks, not here.
func (a *Adapter) OnError(fn func(error)) func() {
	return a.errs.add(fn)
}

// OnConnectionState registers a callback for lifecycle changes.
func (a *Adapter) OnConnectionState(fn func(ConnState)) func() {
	return a.lifecycles.add(fn)
}

// IsConnected reports the last known connection state.
func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// IsStreaming reports whether a stream started here has not ended yet.
func (a *Adapter) IsStreaming() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.streaming
}

// StartStreaming asks the hub to stream kind. It returns once the hub has
// acknowledged the request; envelopes arrive through the callbacks. When
// not connected the error callbacks fire and ErrNotConnected is returned.
// Cancelling ctx before the acknowledgement returns the error without
// firing the error callbacks.
func (a *Adapter) StartStreaming(ctx context.Context, kind directory.Kind) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		a.fail(ErrNotConnected)
		return ErrNotConnected
	}
	a.streaming = true
	a.mu.Unlock()

	a.logger.Debug("starting stream", "kind", kind)
	_, err := a.transport.Call(ctx, transport.MethodStartStream, transport.StartStreamParams{Kind: kind.String()})
	if err != nil {
		a.setStreaming(false)
		err = fmt.Errorf("start %s stream: %w", kind, err)
		// a caller that gave up is told through the return value only
		if ctx.Err() == nil {
			a.fail(err)
		}
		return err
	}
	return nil
}

// StopStreaming clears the local streaming flag and asks the hub to cancel
// the active stream. No terminal envelope or completion callback follows a
// stopped stream.
func (a *Adapter) StopStreaming(ctx context.Context) error {
	a.mu.Lock()
	a.streaming = false
	connected := a.connected
	a.mu.Unlock()
	if !connected {
		return nil
	}
	if _, err := a.transport.Call(ctx, transport.MethodStopStream, struct{}{}); err != nil {
		return fmt.Errorf("stop stream: %w", err)
	}
	return nil
}

func (a *Adapter) setStreaming(v bool) {
	a.mu.Lock()
	a.streaming = v
	a.mu.Unlock()
}

func (a *Adapter) fail(err error) {
	for _, fn := range a.errs.snapshot() {
		fn(err)
	}
}

func (a *Adapter) handleEvent(event string, payload json.RawMessage) {
	switch event {
	case stream.EventUserChunk:
		relay(a, directory.KindUsers, payload, a.users.snapshot, func(u *directory.User) error { return u.Validate() })
	case stream.EventProjectChunk:
		relay(a, directory.KindProjects, payload, a.projects.snapshot, func(p *directory.Project) error { return p.Validate() })
	default:
		a.logger.Debug("ignoring unknown event", "event", event)
	}
}

// relay decodes one envelope and hands it to the callbacks of its kind.
func relay[T any](
	a *Adapter,
	kind directory.Kind,
	payload json.RawMessage,
	callbacks func() []func(stream.Chunk[T]),
	validate func(*T) error,
) {
	var chunk stream.Chunk[T]
	if err := json.Unmarshal(payload, &chunk); err != nil {
		a.fail(fmt.Errorf("%w: decode %s chunk: %v", ErrInvalidPayload, kind, err))
		return
	}
	if chunk.Data != nil {
		if err := validate(chunk.Data); err != nil {
			a.fail(fmt.Errorf("%w: %s chunk %d: %w", ErrInvalidPayload, kind, chunk.ChunkIndex, err))
			return
		}
	}

	for _, fn := range callbacks() {
		fn(chunk)
	}
	if chunk.IsComplete {
		a.setStreaming(false)
		for _, fn := range a.completes.snapshot() {
			fn(kind)
		}
	}
}

func (a *Adapter) handleState(state ConnState) {
	a.mu.Lock()
	a.connected = state.Up()
	lost := !state.Up() && a.streaming
	if !state.Up() {
		a.streaming = false
	}
	a.mu.Unlock()

	a.logger.Debug("connection state", "state", state)
	for _, fn := range a.lifecycles.snapshot() {
		fn(state)
	}
	if lost && state != StateDisconnecting {
		a.fail(ErrConnectionLost)
	}
}

type adapterListener struct {
	a *Adapter
}

func (l adapterListener) OnEvent(event string, payload json.RawMessage) {
	l.a.handleEvent(event, payload)
}

func (l adapterListener) OnStateChange(state ConnState) {
	l.a.handleState(state)
}
