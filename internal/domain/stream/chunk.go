package stream

import (
	"time"

	"github.com/rpggio/dirstream/internal/domain/directory"
)

// Push event names, one per collection.
const (
	EventUserChunk    = "receiveUserChunk"
	EventProjectChunk = "receiveProjectChunk"
)

// EventFor returns the push event carrying chunks of the given kind.
func EventFor(kind directory.Kind) string {
	if kind == directory.KindProjects {
		return EventProjectChunk
	}
	return EventUserChunk
}

// Chunk is one streamed unit. Data is nil only on terminal envelopes that
// carry an error or close an empty collection.
type Chunk[T any] struct {
	Data        *T      `json:"data"`
	IsComplete  bool    `json:"isComplete"`
	Error       *string `json:"error"`
	ChunkIndex  int     `json:"chunkIndex"`
	TotalChunks *int    `json:"totalChunks"`
	Timestamp   string  `json:"timestamp"`
}

// DataChunk builds the envelope for record index of total.
func DataChunk[T any](record T, index, total int) Chunk[T] {
	return Chunk[T]{
		Data:        &record,
		IsComplete:  index == total-1,
		ChunkIndex:  index,
		TotalChunks: &total,
		Timestamp:   now(),
	}
}

// ErrorChunk builds the single terminal envelope of a failed stream.
func ErrorChunk[T any](message string) Chunk[T] {
	zero := 0
	return Chunk[T]{
		IsComplete:  true,
		Error:       &message,
		TotalChunks: &zero,
		Timestamp:   now(),
	}
}

// EmptyChunk closes a stream over an empty collection.
func EmptyChunk[T any]() Chunk[T] {
	zero := 0
	return Chunk[T]{
		IsComplete:  true,
		TotalChunks: &zero,
		Timestamp:   now(),
	}
}

// Failed reports whether the chunk carries an error.
func (c Chunk[T]) Failed() bool {
	return c.Error != nil
}

// ErrorMessage returns the error text or "".
func (c Chunk[T]) ErrorMessage() string {
	if c.Error == nil {
		return ""
	}
	return *c.Error
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
