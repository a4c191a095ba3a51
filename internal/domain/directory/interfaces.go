package directory

import "context"

// Provider exposes the two ordered, read-only collections. Implementations
// return the same content in the same order on every call.
type Provider interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListProjects(ctx context.Context) ([]Project, error)
}

// Repository adds point lookups. Misses return repository.ErrNotFound.
type Repository interface {
	Provider
	GetUser(ctx context.Context, id string) (*User, error)
	GetProject(ctx context.Context, id string) (*Project, error)
}
