package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rpggio/dirstream/internal/transport"
)

const (
	dialTimeout = 10 * time.Second
	writeWait   = 10 * time.Second
)

// DefaultReconnectDelays is the wait before each reconnect attempt.
var DefaultReconnectDelays = []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}

// RemoteOptions configures a RemoteTransport.
type RemoteOptions struct {
	Dialer *websocket.Dialer
	Header http.Header
	// ReconnectDelays overrides DefaultReconnectDelays. An empty, non-nil
	// slice disables reconnecting.
	ReconnectDelays []time.Duration
	Logger          *slog.Logger
}

// RemoteTransport connects to a hub over a websocket and reconnects
// automatically when the connection drops.
type RemoteTransport struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
	delays []time.Duration
	logger *slog.Logger
	nextID atomic.Int64

	mu        sync.Mutex
	ws        *websocket.Conn
	listener  Listener
	connected bool
	// reconnecting is set while the reconnect loop owns the connection.
	reconnecting bool
	closing      bool
	closed    chan struct{}
	readDone  chan struct{}
	pending   map[string]chan callResult

	writeMu sync.Mutex
}

type callResult struct {
	msg transport.Message
	err error
}

// NewRemoteTransport creates a transport for the hub at url (ws:// or wss://).
func NewRemoteTransport(url string, opts RemoteOptions) *RemoteTransport {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: dialTimeout}
	}
	delays := opts.ReconnectDelays
	if delays == nil {
		delays = DefaultReconnectDelays
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RemoteTransport{
		url:     url,
		dialer:  dialer,
		header:  opts.Header,
		delays:  delays,
		logger:  logger.With("url", url),
		pending: make(map[string]chan callResult),
	}
}

// Connect dials the hub. It is a no-op while connected or while the
// reconnect loop is running; the loop reports its outcome to the listener.
func (t *RemoteTransport) Connect(ctx context.Context, listener Listener) error {
	t.mu.Lock()
	if t.connected || t.reconnecting {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	ws, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.url, err)
	}

	done := make(chan struct{})
	t.mu.Lock()
	if t.connected || t.reconnecting {
		t.mu.Unlock()
		_ = ws.Close()
		return nil
	}
	t.ws = ws
	t.listener = listener
	t.connected = true
	t.closing = false
	t.closed = make(chan struct{})
	t.readDone = done
	t.mu.Unlock()

	t.logger.Info("connected")
	listener.OnStateChange(StateConnected)
	go t.readLoop(ws, listener, done)
	return nil
}

// Connected reports whether the websocket is currently open.
func (t *RemoteTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Call sends a request and waits for its response.
func (t *RemoteTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	id := t.nextID.Add(1)
	key := strconv.FormatInt(id, 10)
	ch := make(chan callResult, 1)

	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil, ErrNotConnected
	}
	ws := t.ws
	t.pending[key] = ch
	t.mu.Unlock()

	req := transport.Request{JSONRPC: "2.0", Method: method, Params: raw, ID: id}
	if err := t.write(ws, req); err != nil {
		t.forget(key)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if res.msg.Error != nil {
			return nil, res.msg.Error
		}
		return res.msg.Result, nil
	case <-ctx.Done():
		t.forget(key)
		return nil, ctx.Err()
	}
}

// Close stops reconnecting and closes the websocket.
func (t *RemoteTransport) Close() error {
	t.mu.Lock()
	if t.listener == nil || t.closing {
		t.mu.Unlock()
		return nil
	}
	t.closing = true
	t.reconnecting = false
	close(t.closed)
	ws := t.ws
	done := t.readDone
	listener := t.listener
	wasConnected := t.connected
	t.connected = false
	t.mu.Unlock()

	listener.OnStateChange(StateDisconnecting)
	var err error
	if ws != nil && wasConnected {
		t.writeMu.Lock()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.writeMu.Unlock()
		err = ws.Close()
		<-done
	}
	t.logger.Info("disconnected")
	listener.OnStateChange(StateClosed)
	return err
}

func (t *RemoteTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	ws, resp, err := t.dialer.DialContext(ctx, t.url, t.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return ws, err
}

func (t *RemoteTransport) write(ws *websocket.Conn, v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(v)
}

func (t *RemoteTransport) forget(key string) {
	t.mu.Lock()
	delete(t.pending, key)
	t.mu.Unlock()
}

// readLoop delivers pushes to the listener in arrival order and routes
// responses to their waiting calls.
func (t *RemoteTransport) readLoop(ws *websocket.Conn, listener Listener, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.connectionLost(ws, err)
			return
		}
		msg, err := transport.ParseMessage(data)
		if err != nil {
			t.logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		if msg.IsNotification() {
			listener.OnEvent(msg.Method, msg.Params)
			continue
		}
		t.resolve(msg)
	}
}

func (t *RemoteTransport) resolve(msg transport.Message) {
	key := string(msg.ID)
	t.mu.Lock()
	ch, ok := t.pending[key]
	delete(t.pending, key)
	t.mu.Unlock()
	if !ok {
		if msg.Error != nil {
			t.logger.Warn("hub error", "error", msg.Error)
		}
		return
	}
	ch <- callResult{msg: msg}
}

func (t *RemoteTransport) connectionLost(ws *websocket.Conn, cause error) {
	t.mu.Lock()
	if t.ws != ws {
		t.mu.Unlock()
		return
	}
	closing := t.closing
	t.connected = false
	t.reconnecting = !closing && len(t.delays) > 0
	pending := t.pending
	t.pending = make(map[string]chan callResult)
	listener := t.listener
	closed := t.closed
	t.mu.Unlock()

	for _, ch := range pending {
		ch <- callResult{err: ErrConnectionLost}
	}
	if closing {
		return
	}

	t.logger.Warn("connection lost", "error", cause)
	if len(t.delays) == 0 {
		listener.OnStateChange(StateClosed)
		return
	}
	listener.OnStateChange(StateReconnecting)
	go t.reconnect(listener, closed)
}

func (t *RemoteTransport) reconnect(listener Listener, closed chan struct{}) {
	for attempt, delay := range t.delays {
		timer := time.NewTimer(delay)
		select {
		case <-closed:
			timer.Stop()
			return
		case <-timer.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		ws, err := t.dial(ctx)
		cancel()
		if err != nil {
			t.logger.Warn("reconnect failed", "attempt", attempt+1, "error", err)
			continue
		}

		done := make(chan struct{})
		t.mu.Lock()
		if t.closing || t.closed != closed {
			t.mu.Unlock()
			_ = ws.Close()
			return
		}
		t.ws = ws
		t.connected = true
		t.reconnecting = false
		t.readDone = done
		t.mu.Unlock()

		t.logger.Info("reconnected", "attempt", attempt+1)
		listener.OnStateChange(StateReconnected)
		go t.readLoop(ws, listener, done)
		return
	}

	t.mu.Lock()
	owned := t.closed == closed && !t.closing
	if owned {
		t.reconnecting = false
	}
	t.mu.Unlock()
	if !owned {
		return
	}
	t.logger.Error("giving up reconnecting", "attempts", len(t.delays))
	listener.OnStateChange(StateClosed)
}
