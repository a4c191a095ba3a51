package client

import (
	"context"
	"sync"
	"time"

	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/domain/stream"
)

const stopTimeout = 5 * time.Second

// Phase is the renderable state of an Accumulator.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStreaming Phase = "streaming"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Progress counts delivered records. Total is nil until the first envelope.
type Progress struct {
	Current int
	Total   *int
}

// Snapshot is a point-in-time copy of an Accumulator's state.
type Snapshot[T any] struct {
	Items       []T
	IsStreaming bool
	Error       error
	Progress    Progress
}

// Accumulator collects one streamed collection into an ordered slice.
// Every Collect or Load starts a new generation; events from earlier
// generations are ignored.
type Accumulator[T any] struct {
	adapter   *Adapter
	kind      directory.Kind
	subscribe func(*Adapter, func(stream.Chunk[T])) func()

	mu          sync.Mutex
	gen         uint64
	started     bool
	items       []T
	isStreaming bool
	err         error
	progress    Progress
	done        chan struct{}
	unsubscribe []func()
	onChange    func(Snapshot[T])
}

// NewUserAccumulator collects the user stream of adapter.
func NewUserAccumulator(adapter *Adapter) *Accumulator[directory.User] {
	return &Accumulator[directory.User]{
		adapter: adapter,
		kind:    directory.KindUsers,
		subscribe: func(a *Adapter, fn func(stream.Chunk[directory.User])) func() {
			return a.OnUserReceived(fn)
		},
	}
}

// NewProjectAccumulator collects the project stream of adapter.
func NewProjectAccumulator(adapter *Adapter) *Accumulator[directory.Project] {
	return &Accumulator[directory.Project]{
		adapter: adapter,
		kind:    directory.KindProjects,
		subscribe: func(a *Adapter, fn func(stream.Chunk[directory.Project])) func() {
			return a.OnProjectReceived(fn)
		},
	}
}

// OnChange sets a listener called after every state change. It runs on the
// goroutine that caused the change.
func (acc *Accumulator[T]) OnChange(fn func(Snapshot[T])) {
	acc.mu.Lock()
	acc.onChange = fn
	acc.mu.Unlock()
}

// Collect resets the state, starts the stream and blocks until it
// completes or fails. It returns the stream error, if any. Cancelling ctx,
// before or after the hub acknowledges the start, stops the stream, leaves
// the records received so far and records no error.
func (acc *Accumulator[T]) Collect(ctx context.Context) error {
	gen, done := acc.reset()

	acc.mu.Lock()
	acc.unsubscribe = []func(){
		acc.subscribe(acc.adapter, func(c stream.Chunk[T]) { acc.handleChunk(gen, c) }),
		acc.adapter.OnComplete(func(kind directory.Kind) {
			if kind == acc.kind {
				acc.finish(gen, nil)
			}
		}),
		acc.adapter.OnError(func(err error) { acc.finish(gen, err) }),
	}
	acc.mu.Unlock()

	if err := acc.adapter.StartStreaming(ctx, acc.kind); err != nil {
		if ctx.Err() != nil {
			acc.stop(gen)
			return ctx.Err()
		}
		acc.finish(gen, err)
		return err
	}

	select {
	case <-done:
		acc.mu.Lock()
		defer acc.mu.Unlock()
		if acc.gen != gen {
			return nil
		}
		return acc.err
	case <-ctx.Done():
		acc.stop(gen)
		return ctx.Err()
	}
}

// Stop cancels the active stream. Records received so far are kept and no
// error is recorded.
func (acc *Accumulator[T]) Stop() {
	acc.mu.Lock()
	gen := acc.gen
	acc.mu.Unlock()
	acc.stop(gen)
}

// Load fills the accumulator from a one-shot fetch instead of a stream.
func (acc *Accumulator[T]) Load(ctx context.Context, fetch func(context.Context) ([]T, error)) error {
	gen, _ := acc.reset()

	items, err := fetch(ctx)
	if err != nil {
		acc.finish(gen, err)
		return err
	}

	acc.mu.Lock()
	if acc.gen != gen {
		acc.mu.Unlock()
		return nil
	}
	acc.items = append(acc.items[:0], items...)
	total := len(items)
	acc.progress = Progress{Current: total, Total: &total}
	acc.mu.Unlock()

	acc.finish(gen, nil)
	return nil
}

// Snapshot returns a copy of the current state.
func (acc *Accumulator[T]) Snapshot() Snapshot[T] {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.snapshotLocked()
}

// Phase returns the state to render.
func (acc *Accumulator[T]) Phase() Phase {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	switch {
	case acc.isStreaming:
		return PhaseStreaming
	case acc.err != nil:
		return PhaseFailed
	case acc.started:
		return PhaseCompleted
	default:
		return PhaseIdle
	}
}

func (acc *Accumulator[T]) reset() (uint64, chan struct{}) {
	acc.mu.Lock()
	for _, unsub := range acc.unsubscribe {
		unsub()
	}
	acc.unsubscribe = nil
	if acc.done != nil && acc.isStreaming {
		close(acc.done)
	}
	acc.gen++
	acc.started = true
	acc.items = []T{}
	acc.err = nil
	acc.progress = Progress{}
	acc.isStreaming = true
	acc.done = make(chan struct{})
	gen, done := acc.gen, acc.done
	snap, notify := acc.snapshotLocked(), acc.onChange
	acc.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
	return gen, done
}

func (acc *Accumulator[T]) handleChunk(gen uint64, c stream.Chunk[T]) {
	acc.mu.Lock()
	if gen != acc.gen || !acc.isStreaming {
		acc.mu.Unlock()
		return
	}
	if c.Error != nil {
		acc.mu.Unlock()
		acc.finish(gen, &StreamError{Message: *c.Error})
		return
	}
	if c.Data != nil {
		acc.items = append(acc.items, *c.Data)
		acc.progress = Progress{Current: c.ChunkIndex + 1, Total: c.TotalChunks}
	} else if c.IsComplete {
		acc.progress.Total = c.TotalChunks
	}
	snap, notify := acc.snapshotLocked(), acc.onChange
	acc.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
	if c.IsComplete {
		acc.finish(gen, nil)
	}
}

// finish ends generation gen once. Later calls for the same generation are
// ignored, so the terminal envelope and the completion callback may both
// arrive.
func (acc *Accumulator[T]) finish(gen uint64, err error) {
	acc.mu.Lock()
	if gen != acc.gen || !acc.isStreaming {
		acc.mu.Unlock()
		return
	}
	acc.isStreaming = false
	if err != nil {
		acc.err = err
	}
	close(acc.done)
	unsubscribe := acc.unsubscribe
	acc.unsubscribe = nil
	snap, notify := acc.snapshotLocked(), acc.onChange
	acc.mu.Unlock()

	for _, unsub := range unsubscribe {
		unsub()
	}
	if notify != nil {
		notify(snap)
	}
}

func (acc *Accumulator[T]) stop(gen uint64) {
	acc.mu.Lock()
	active := gen == acc.gen && acc.isStreaming
	acc.mu.Unlock()
	if !active {
		return
	}
	acc.finish(gen, nil)

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	_ = acc.adapter.StopStreaming(ctx)
}

func (acc *Accumulator[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(acc.items))
	copy(items, acc.items)
	return Snapshot[T]{
		Items:       items,
		IsStreaming: acc.isStreaming,
		Error:       acc.err,
		Progress:    acc.progress,
	}
}
