package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/domain/stream"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// ErrConnectionClosed is returned when pushing to a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Hub upgrades HTTP requests to websocket connections and binds each
// connection to a stream session.
type Hub struct {
	handler  *stream.Handler
	upgrader websocket.Upgrader
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conns map[string]*conn
}

// NewHub creates a hub serving sessions from handler.
func NewHub(handler *stream.Handler, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		handler: handler,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[string]*conn),
	}
}

// Connections returns the number of open connections.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close cancels every session and closes every open connection.
func (h *Hub) Close() {
	h.cancel()
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	id := uuid.NewString()
	c := &conn{ws: ws}
	h.track(id, c)
	defer h.untrack(id)

	sess := h.handler.Open(h.ctx, id, c)
	h.serve(sess, c)
}

func (h *Hub) track(id string, c *conn) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
}

func (h *Hub) untrack(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// serve runs the read loop of one connection. Streams run on their own
// goroutines so stopStream and ping stay responsive while data flows.
func (h *Hub) serve(sess *stream.Session, c *conn) {
	logger := h.logger.With("session_id", sess.ID())
	var streams sync.WaitGroup
	defer func() {
		sess.Close()
		c.close(websocket.CloseNormalClosure, "")
		streams.Wait()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read loop ended", "error", err)
			}
			return
		}

		req, err := ParseRequest(data)
		if err != nil {
			code := ErrInvalidReq
			if !json.Valid(data) {
				code = ErrParseCode
			}
			c.reply(NewError(nil, code, err.Error(), nil), logger)
			continue
		}

		switch req.Method {
		case MethodStartStream:
			var params StartStreamParams
			if len(req.Params) > 0 {
				if err := json.Unmarshal(req.Params, &params); err != nil {
					c.reply(NewError(req.ID, ErrInvalidParams, "invalid params", err.Error()), logger)
					continue
				}
			}
			kind, err := directory.ParseKind(params.Kind)
			if err != nil {
				c.reply(NewError(req.ID, ErrInvalidParams, err.Error(), nil), logger)
				continue
			}
			// The session is claimed before the acknowledgement so a stopStream
			// read next always reaches this stream. The acknowledgement goes out
			// before the first envelope.
			claim := sess.Claim(context.Background())
			if !c.reply(NewResult(req.ID, StartStreamResult{Accepted: true}), logger) {
				claim.Release()
				return
			}
			streams.Add(1)
			go func() {
				defer streams.Done()
				claim.Run(kind)
			}()
		case MethodStopStream:
			sess.Stop()
			c.reply(NewResult(req.ID, struct{}{}), logger)
		case MethodPing:
			c.reply(NewResult(req.ID, PingResult{Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}), logger)
		default:
			c.reply(NewError(req.ID, ErrMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil), logger)
		}
	}
}

// conn serializes writes to one websocket.
type conn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// Send pushes one notification frame. It implements stream.Caller.
func (c *conn) Send(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.write(NewNotification(event, payload))
}

func (c *conn) reply(resp Response, logger *slog.Logger) bool {
	if err := c.write(resp); err != nil {
		logger.Warn("failed to write response", "error", err)
		return false
	}
	return true
}

func (c *conn) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *conn) close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	_ = c.ws.Close()
}
