package directory

import (
	"context"

	"github.com/rpggio/dirstream/internal/repository"
)

// SampleRepository serves the fixed demo directory from memory. It is safe
// for concurrent use: the data is never mutated after construction and every
// read hands out copies.
type SampleRepository struct {
	users    []User
	projects []Project
}

// NewSampleRepository builds the five-user, three-project sample set.
func NewSampleRepository() *SampleRepository {
	users := SampleUsers()
	return &SampleRepository{
		users:    users,
		projects: sampleProjects(users),
	}
}

// ListUsers returns the users in stored order.
func (r *SampleRepository) ListUsers(_ context.Context) ([]User, error) {
	out := make([]User, len(r.users))
	for i, u := range r.users {
		out[i] = u.Clone()
	}
	return out, nil
}

// ListProjects returns the projects in stored order.
func (r *SampleRepository) ListProjects(_ context.Context) ([]Project, error) {
	out := make([]Project, len(r.projects))
	for i, p := range r.projects {
		out[i] = p.Clone()
	}
	return out, nil
}

// GetUser finds a user by id.
func (r *SampleRepository) GetUser(_ context.Context, id string) (*User, error) {
	for _, u := range r.users {
		if u.ID == id {
			found := u.Clone()
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetProject finds a project by id.
func (r *SampleRepository) GetProject(_ context.Context, id string) (*Project, error) {
	for _, p := range r.projects {
		if p.ID == id {
			found := p.Clone()
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// SampleUsers returns a fresh copy of the demo users.
func SampleUsers() []User {
	return []User{
		{
			ID:             "87d349ed-44d7-43e1-9a83-5f2406dee5bd",
			DisplayName:    "Adele Vance",
			GivenName:      ptr("Adele"),
			Surname:        ptr("Vance"),
			Mail:           "adelev@contoso.com",
			JobTitle:       "Product Marketing Manager",
			Department:     "Sales & Marketing",
			OfficeLocation: ptr("18/2111"),
			BusinessPhones: []string{"+1 425 555 0100"},
		},
		{
			ID:             "6e7b768e-07e2-4810-8459-485f84f8f204",
			DisplayName:    "Megan Bowen",
			GivenName:      ptr("Megan"),
			Surname:        ptr("Bowen"),
			Mail:           "meganb@contoso.com",
			JobTitle:       "Auditor",
			Department:     "Finance",
			OfficeLocation: ptr("12/1110"),
			BusinessPhones: []string{"+1 425 555 0109"},
		},
		{
			ID:             "2d3d2640-20c3-4c4b-8c7a-4b6b8e4c0f9a",
			DisplayName:    "Alex Wilber",
			GivenName:      ptr("Alex"),
			Surname:        ptr("Wilber"),
			Mail:           "alexw@contoso.com",
			JobTitle:       "Software Engineer",
			Department:     "Engineering",
			OfficeLocation: ptr("20/1101"),
			BusinessPhones: []string{"+1 425 555 0130"},
		},
		{
			ID:             "1f1f1f1f-2e2e-3d3d-4c4c-5b5b5b5b5b5b",
			DisplayName:    "Isaiah Langer",
			GivenName:      ptr("Isaiah"),
			Surname:        ptr("Langer"),
			Mail:           "isaiahl@contoso.com",
			JobTitle:       "Director of Product",
			Department:     "Product",
			OfficeLocation: ptr("18/2109"),
			BusinessPhones: []string{"+1 425 555 0140"},
		},
		{
			ID:             "9a9a9a9a-8b8b-7c7c-6d6d-5e5e5e5e5e5e",
			DisplayName:    "Lynne Robbins",
			GivenName:      ptr("Lynne"),
			Surname:        ptr("Robbins"),
			Mail:           "lynner@contoso.com",
			JobTitle:       "HR Manager",
			Department:     "Human Resources",
			OfficeLocation: ptr("15/1105"),
			BusinessPhones: []string{"+1 425 555 0150"},
		},
	}
}

// SampleProjects returns a fresh copy of the demo projects.
func SampleProjects() []Project {
	return sampleProjects(SampleUsers())
}

func sampleProjects(users []User) []Project {
	return []Project{
		{
			ID:          "b320ee12-b1cd-4cca-b648-a437be61c5cd",
			Name:        "Marketing Campaign 2024",
			Description: "Q1 product launch marketing campaign",
			Status:      StatusActive,
			Owner:       users[0].Clone(),
			CreatedDate: "2024-01-15T12:00:00Z",
			MemberCount: 8,
			Mail:        ptr("marketing2024@contoso.com"),
		},
		{
			ID:          "45b7d2e9-866f-4a2d-a524-fe0f10c94a34",
			Name:        "Website Redesign",
			Description: "Complete overhaul of company website with modern design",
			Status:      StatusOnHold,
			Owner:       users[2].Clone(),
			CreatedDate: "2024-02-20T14:30:00Z",
			MemberCount: 5,
		},
		{
			ID:          "c9c9c9c9-8d8d-7a7a-6b6b-5c5c5c5c5c5c",
			Name:        "Financial Audit Q4 2023",
			Description: "Annual financial audit and compliance review",
			Status:      StatusCompleted,
			Owner:       users[1].Clone(),
			CreatedDate: "2023-10-01T09:00:00Z",
			MemberCount: 3,
		},
	}
}
