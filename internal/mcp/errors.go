package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/repository"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
	cause        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, directory.ErrInvalidID):
		return &APIError{Code: "INVALID_ID", Message: "invalid ID format", RecoveryHint: "Pass a non-empty id", cause: err}
	case errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "record not found", RecoveryHint: "List the collection to find valid ids", cause: err}
	case errors.Is(err, directory.ErrUnknownKind):
		return &APIError{Code: "UNKNOWN_KIND", Message: "unknown collection kind", RecoveryHint: "Use users or projects", cause: err}
	default:
		return nil
	}
}
