package directory

import "fmt"

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

const (
	StatusActive    ProjectStatus = "active"
	StatusCompleted ProjectStatus = "completed"
	StatusOnHold    ProjectStatus = "on-hold"
)

// Valid reports whether s is one of the known statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusOnHold:
		return true
	}
	return false
}

// User is a directory person record
type User struct {
	ID             string   `json:"id"`
	DisplayName    string   `json:"displayName"`
	GivenName      *string  `json:"givenName,omitempty"`
	Surname        *string  `json:"surname,omitempty"`
	Mail           string   `json:"mail"`
	JobTitle       string   `json:"jobTitle"`
	Department     string   `json:"department"`
	OfficeLocation *string  `json:"officeLocation,omitempty"`
	BusinessPhones []string `json:"businessPhones,omitempty"`
	Summary        *string  `json:"summary,omitempty"`
}

// Project is a team workspace owned by one user. Owner is held by value.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	Owner       User          `json:"owner"`
	CreatedDate string        `json:"createdDate"`
	MemberCount int           `json:"memberCount"`
	Mail        *string       `json:"mail,omitempty"`
}

// Kind selects one of the streamable collections.
type Kind string

const (
	KindUsers    Kind = "users"
	KindProjects Kind = "projects"
)

// ParseKind converts a wire value into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindUsers, KindProjects:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) String() string {
	return string(k)
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	out := u
	if u.BusinessPhones != nil {
		out.BusinessPhones = append([]string(nil), u.BusinessPhones...)
	}
	return out
}

// Clone returns a deep copy of the project, owner included.
func (p Project) Clone() Project {
	out := p
	out.Owner = p.Owner.Clone()
	return out
}

func ptr[T any](v T) *T {
	return &v
}
