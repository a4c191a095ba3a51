package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/dirstream/internal/clock"
	"github.com/rpggio/dirstream/internal/repository"
)

// Service is the one-shot fetch API. Every call waits a fixed artificial
// latency before answering.
type Service struct {
	repo          Repository
	latency       time.Duration
	lookupLatency time.Duration
	logger        *slog.Logger
}

// ServiceOptions tunes the artificial latencies.
type ServiceOptions struct {
	Latency       time.Duration
	LookupLatency time.Duration
}

// NewService creates a new directory service.
func NewService(repo Repository, opts ServiceOptions, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:          repo,
		latency:       opts.Latency,
		lookupLatency: opts.LookupLatency,
		logger:        logger,
	}
}

// GetUsers returns every user.
func (s *Service) GetUsers(ctx context.Context) ([]User, error) {
	if err := clock.Sleep(ctx, s.latency); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// GetProjects returns every project.
func (s *Service) GetProjects(ctx context.Context) ([]Project, error) {
	if err := clock.Sleep(ctx, s.latency); err != nil {
		return nil, err
	}
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// GetUserByID returns the user or nil when no user has that id.
func (s *Service) GetUserByID(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("failed to fetch user: %w", ErrInvalidID)
	}
	if err := clock.Sleep(ctx, s.lookupLatency); err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("user not found", "user_id", id)
			return nil, nil
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

// GetProjectByID returns the project or nil when no project has that id.
func (s *Service) GetProjectByID(ctx context.Context, id string) (*Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("failed to fetch project: %w", ErrInvalidID)
	}
	if err := clock.Sleep(ctx, s.lookupLatency); err != nil {
		return nil, err
	}
	proj, err := s.repo.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("project not found", "project_id", id)
			return nil, nil
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}
