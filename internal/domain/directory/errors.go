package directory

import "errors"

var (
	// ErrInvalidID indicates an empty or malformed lookup id.
	ErrInvalidID = errors.New("invalid ID format")
	// ErrUnknownKind indicates a collection selector that is neither users nor projects.
	ErrUnknownKind = errors.New("unknown collection kind")
	// ErrInvalidUser indicates a user record missing required fields.
	ErrInvalidUser = errors.New("invalid user")
	// ErrInvalidProject indicates a project record missing required fields.
	ErrInvalidProject = errors.New("invalid project")
)
