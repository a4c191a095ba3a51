package stream

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rpggio/dirstream/internal/clock"
	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/metrics"
)

// Caller pushes named events to the client that owns a session.
// Send must be safe for concurrent use; envelopes from one stream are sent
// sequentially and must be delivered in call order.
type Caller interface {
	Send(ctx context.Context, event string, payload any) error
}

// Handler opens sessions over a shared source. One Handler serves every
// connection of a process.
type Handler struct {
	source  *Source
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewHandler creates a session handler. m may be nil.
func NewHandler(source *Source, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{source: source, metrics: m, logger: logger}
}

// Open creates the session for a new connection. The session lives until
// Close is called or parent is cancelled.
func (h *Handler) Open(parent context.Context, id string, caller Caller) *Session {
	ctx, cancel := context.WithCancel(parent)
	h.metrics.SessionOpened()
	h.logger.Info("client connected", "session_id", id)
	return &Session{
		id:      id,
		handler: h,
		caller:  caller,
		ctx:     ctx,
		cancel:  cancel,
		logger:  h.logger.With("session_id", id),
	}
}

// Session is the server-side state of one connection. At most one stream
// is active at a time.
type Session struct {
	id        string
	handler   *Handler
	caller    Caller
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger
	streaming atomic.Bool
	closeOnce sync.Once

	mu     sync.Mutex
	active *activeStream
}

// activeStream is the bookkeeping of the stream currently holding a session.
type activeStream struct {
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// ID returns the connection id.
func (s *Session) ID() string {
	return s.id
}

// Streaming reports whether a stream is currently active.
func (s *Session) Streaming() bool {
	return s.streaming.Load()
}

// Stop cancels the active stream, if any, without closing the session.
// No terminal envelope is sent for a stopped stream.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.stopped = true
		s.active.cancel()
	}
}

// Close cancels any active stream and releases the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.handler.metrics.SessionClosed()
		s.logger.Info("client disconnected")
	})
}

// StartStream drains the source for kind and pushes one envelope per record
// to the caller. It returns when the stream completes, fails, or is
// cancelled. Failures are reported to the caller as a terminal error
// envelope, never returned.
func (s *Session) StartStream(ctx context.Context, kind directory.Kind) {
	s.Claim(ctx).Run(kind)
}

// Claim reserves the session for the next stream. A stream that was stopped
// but has not wound down yet is waited for first, so a start right after
// Stop is accepted. A Stop issued after Claim returns reaches the claimed
// stream even if Run has not started. Every Claim must be Run or Released.
func (s *Session) Claim(ctx context.Context) *Claim {
	c := &Claim{session: s, started: time.Now()}

	s.mu.Lock()
	if s.active != nil && s.active.stopped {
		done := s.active.done
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		case <-s.ctx.Done():
		}
		s.mu.Lock()
	}
	defer s.mu.Unlock()
	if s.active != nil {
		return c
	}

	ctx, cancel := context.WithCancel(ctx)
	a := &activeStream{cancel: cancel, done: make(chan struct{})}
	s.active = a
	s.streaming.Store(true)
	c.ctx = ctx
	c.cancel = cancel
	c.release = sync.OnceFunc(func() {
		s.mu.Lock()
		if s.active == a {
			s.active = nil
		}
		s.streaming.Store(false)
		s.mu.Unlock()
		close(a.done)
	})
	return c
}

// Claim is a reservation made by Session.Claim. A claim that found another
// stream running is rejected when run.
type Claim struct {
	session *Session
	started time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	release func()
}

// Accepted reports whether the claim holds the session.
func (c *Claim) Accepted() bool {
	return c.release != nil
}

// Release gives the session back without streaming.
func (c *Claim) Release() {
	if c.Accepted() {
		c.cancel()
		c.release()
	}
}

// Run streams kind under the claim, or sends the rejection envelope when the
// claim was not accepted.
func (c *Claim) Run(kind directory.Kind) {
	s := c.session
	logger := s.logger.With("kind", kind)

	if !c.Accepted() {
		logger.Warn("stream rejected", "error", ErrStreamInProgress)
		s.handler.metrics.StreamFinished(kind.String(), metrics.OutcomeRejected, c.started)
		s.sendError(kind, ErrStreamInProgress.Error())
		return
	}
	logger.Info("client requested stream")

	ctx, release := c.ctx, c.release
	detach := context.AfterFunc(s.ctx, c.cancel)
	defer func() {
		detach()
		c.cancel()
		release()
	}()

	var (
		outcome string
		err     error
	)
	switch kind {
	case directory.KindUsers:
		outcome, err = deliver(ctx, s, kind, s.handler.source.Users, release)
	case directory.KindProjects:
		outcome, err = deliver(ctx, s, kind, s.handler.source.Projects, release)
	default:
		outcome, err = metrics.OutcomeFailed, fmt.Errorf("%w: %q", directory.ErrUnknownKind, kind)
	}

	s.handler.metrics.StreamFinished(kind.String(), outcome, c.started)
	switch outcome {
	case metrics.OutcomeCompleted:
		logger.Info("stream completed", "duration", time.Since(c.started))
	case metrics.OutcomeCancelled:
		logger.Info("stream cancelled")
	case metrics.OutcomeFailed:
		logger.Error("stream failed", "error", err)
		release()
		s.sendError(kind, fmt.Sprintf("failed to stream %s: %v", kind, err))
	}
}

// deliver drains the whole sequence before sending anything so every
// envelope carries the total, then sends the records with the source pacing
// between sends. release is called right before the terminal envelope goes
// out so the client can start the next stream as soon as it sees completion.
func deliver[T any](
	ctx context.Context,
	s *Session,
	kind directory.Kind,
	open func(context.Context) (iter.Seq[T], error),
	release func(),
) (string, error) {
	seq, err := open(ctx)
	if err != nil {
		return sendOutcome(ctx, err)
	}
	var items []T
	for item := range seq {
		items = append(items, item)
	}
	if ctx.Err() != nil {
		return metrics.OutcomeCancelled, nil
	}

	event := EventFor(kind)
	total := len(items)
	if total == 0 {
		release()
		if err := s.caller.Send(ctx, event, EmptyChunk[T]()); err != nil {
			return sendOutcome(ctx, err)
		}
		return metrics.OutcomeCompleted, nil
	}

	pacing := s.handler.source.Pacing()
	for i, item := range items {
		if ctx.Err() != nil {
			return metrics.OutcomeCancelled, nil
		}
		if i > 0 && clock.Sleep(ctx, pacing) != nil {
			return metrics.OutcomeCancelled, nil
		}
		chunk := DataChunk(item, i, total)
		if chunk.IsComplete {
			release()
		}
		if err := s.caller.Send(ctx, event, chunk); err != nil {
			return sendOutcome(ctx, fmt.Errorf("sending chunk %d: %w", i, err))
		}
		s.handler.metrics.ChunkSent(kind.String())
		s.logger.Debug("chunk sent", "kind", kind, "chunk_index", i, "total_chunks", total)
	}
	return metrics.OutcomeCompleted, nil
}

func sendOutcome(ctx context.Context, err error) (string, error) {
	if ctx.Err() != nil {
		return metrics.OutcomeCancelled, nil
	}
	return metrics.OutcomeFailed, err
}

func (s *Session) sendError(kind directory.Kind, message string) {
	var payload any
	if kind == directory.KindProjects {
		payload = ErrorChunk[directory.Project](message)
	} else {
		payload = ErrorChunk[directory.User](message)
	}
	if err := s.caller.Send(s.ctx, EventFor(kind), payload); err != nil {
		s.logger.Warn("failed to send error envelope", "kind", kind, "error", err)
	}
}
