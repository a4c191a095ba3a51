package stream

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/rpggio/dirstream/internal/clock"
	"github.com/rpggio/dirstream/internal/domain/directory"
)

// Source turns the provider's collections into paced record sequences.
type Source struct {
	provider directory.Provider
	pacing   time.Duration
	logger   *slog.Logger
}

// NewSource creates a source that waits pacing before every record but the first.
func NewSource(provider directory.Provider, pacing time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{provider: provider, pacing: pacing, logger: logger}
}

// Pacing returns the configured delay.
func (s *Source) Pacing() time.Duration {
	return s.pacing
}

// Users returns the paced user sequence.
func (s *Source) Users(ctx context.Context) (iter.Seq[directory.User], error) {
	users, err := s.provider.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	s.logger.Debug("user source ready", "count", len(users))
	return Pace(ctx, users, s.pacing), nil
}

// Projects returns the paced project sequence.
func (s *Source) Projects(ctx context.Context) (iter.Seq[directory.Project], error) {
	projects, err := s.provider.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	s.logger.Debug("project source ready", "count", len(projects))
	return Pace(ctx, projects, s.pacing), nil
}

// Pace yields items in order, waiting delay before each one after the first.
// Cancelling ctx ends the sequence early; it is not reported as an error.
// The returned sequence is single-use.
func Pace[T any](ctx context.Context, items []T, delay time.Duration) iter.Seq[T] {
	used := false
	return func(yield func(T) bool) {
		if used {
			return
		}
		used = true
		for i, item := range items {
			if ctx.Err() != nil {
				return
			}
			if i > 0 && clock.Sleep(ctx, delay) != nil {
				return
			}
			if !yield(item) {
				return
			}
		}
	}
}
