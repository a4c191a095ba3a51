package directory

import (
	"fmt"
	"strings"
)

// Validate checks the fields every consumer relies on.
func (u User) Validate() error {
	switch {
	case strings.TrimSpace(u.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidUser)
	case strings.TrimSpace(u.DisplayName) == "":
		return fmt.Errorf("%w: missing display name", ErrInvalidUser)
	case strings.TrimSpace(u.Mail) == "":
		return fmt.Errorf("%w: missing mail", ErrInvalidUser)
	case strings.TrimSpace(u.JobTitle) == "":
		return fmt.Errorf("%w: missing job title", ErrInvalidUser)
	case strings.TrimSpace(u.Department) == "":
		return fmt.Errorf("%w: missing department", ErrInvalidUser)
	}
	return nil
}

// Validate checks required fields, the status enum and the owner.
func (p Project) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidProject)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidProject)
	case !p.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidProject, p.Status)
	case strings.TrimSpace(p.CreatedDate) == "":
		return fmt.Errorf("%w: missing created date", ErrInvalidProject)
	case p.MemberCount < 0:
		return fmt.Errorf("%w: negative member count", ErrInvalidProject)
	}
	if err := p.Owner.Validate(); err != nil {
		return fmt.Errorf("%w: owner: %v", ErrInvalidProject, err)
	}
	return nil
}
