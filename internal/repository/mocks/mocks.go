package mocks

import (
	"context"

	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/stretchr/testify/mock"
)

// DirectoryRepository is a mock for directory.Repository.
type DirectoryRepository struct {
	mock.Mock
}

func (m *DirectoryRepository) ListUsers(ctx context.Context) ([]directory.User, error) {
	args := m.Called(ctx)
	if users, ok := args.Get(0).([]directory.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DirectoryRepository) ListProjects(ctx context.Context) ([]directory.Project, error) {
	args := m.Called(ctx)
	if projects, ok := args.Get(0).([]directory.Project); ok {
		return projects, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DirectoryRepository) GetUser(ctx context.Context, id string) (*directory.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*directory.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DirectoryRepository) GetProject(ctx context.Context, id string) (*directory.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*directory.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}
