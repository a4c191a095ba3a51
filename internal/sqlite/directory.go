package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/rpggio/dirstream/internal/repository"
)

// DirectoryRepository implements directory.Repository for SQLite
type DirectoryRepository struct {
	db *DB
}

// NewDirectoryRepository creates a new DirectoryRepository
func NewDirectoryRepository(db *DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

const userColumns = `u.id, u.display_name, u.given_name, u.surname, u.mail, u.job_title, u.department, u.office_location, u.summary`

// Seed inserts users and projects in order, appending after any existing rows.
// Projects must reference an owner already stored or present in users.
func (r *DirectoryRepository) Seed(ctx context.Context, users []directory.User, projects []directory.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userPos, projectPos int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM users`).Scan(&userPos); err != nil {
		return fmt.Errorf("failed to read user position: %w", err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM projects`).Scan(&projectPos); err != nil {
		return fmt.Errorf("failed to read project position: %w", err)
	}

	for i, u := range users {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, position, display_name, given_name, surname, mail, job_title, department, office_location, summary)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			u.ID,
			userPos+i,
			u.DisplayName,
			nullString(u.GivenName),
			nullString(u.Surname),
			u.Mail,
			u.JobTitle,
			u.Department,
			nullString(u.OfficeLocation),
			nullString(u.Summary),
		)
		if err != nil {
			return fmt.Errorf("failed to insert user %s: %w", u.ID, mapWriteError(err))
		}
		for j, phone := range u.BusinessPhones {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_phones (user_id, position, phone) VALUES (?, ?, ?)`,
				u.ID, j, phone,
			); err != nil {
				return fmt.Errorf("failed to insert phone for user %s: %w", u.ID, mapWriteError(err))
			}
		}
	}

	for i, p := range projects {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, position, name, description, status, owner_id, created_date, member_count, mail)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.ID,
			projectPos+i,
			p.Name,
			p.Description,
			string(p.Status),
			p.Owner.ID,
			p.CreatedDate,
			p.MemberCount,
			nullString(p.Mail),
		)
		if err != nil {
			return fmt.Errorf("failed to insert project %s: %w", p.ID, mapWriteError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	return nil
}

// SeedIfEmpty seeds the directory unless it already holds users. It reports
// whether rows were inserted.
func (r *DirectoryRepository) SeedIfEmpty(ctx context.Context, users []directory.User, projects []directory.Project) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if err := r.Seed(ctx, users, projects); err != nil {
		return false, err
	}
	return true, nil
}

// ListUsers returns all users in stored order.
func (r *DirectoryRepository) ListUsers(ctx context.Context) ([]directory.User, error) {
	users, err := r.queryUsers(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.position`)
	if err != nil {
		return nil, err
	}
	if err := r.attachPhones(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser retrieves a user by ID
func (r *DirectoryRepository) GetUser(ctx context.Context, id string) (*directory.User, error) {
	users, err := r.queryUsers(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, repository.ErrNotFound
	}
	if err := r.attachPhones(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

// ListProjects returns all projects in stored order with their owners.
func (r *DirectoryRepository) ListProjects(ctx context.Context) ([]directory.Project, error) {
	return r.queryProjects(ctx, `ORDER BY p.position`)
}

// GetProject retrieves a project by ID
func (r *DirectoryRepository) GetProject(ctx context.Context, id string) (*directory.Project, error) {
	projects, err := r.queryProjects(ctx, `WHERE p.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, repository.ErrNotFound
	}
	return &projects[0], nil
}

func (r *DirectoryRepository) queryUsers(ctx context.Context, query string, args ...any) ([]directory.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []directory.User{}
	for rows.Next() {
		var u directory.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *DirectoryRepository) queryProjects(ctx context.Context, clause string, args ...any) ([]directory.Project, error) {
	query := `
		SELECT p.id, p.name, p.description, p.status, p.created_date, p.member_count, p.mail, ` + userColumns + `
		FROM projects p
		JOIN users u ON u.id = p.owner_id
		` + clause

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}

	projects := []directory.Project{}
	for rows.Next() {
		var (
			p      directory.Project
			status string
			mail   sql.NullString
		)
		if err := scanUser(rows, &p.Owner, &p.ID, &p.Name, &p.Description, &status, &p.CreatedDate, &p.MemberCount, &mail); err != nil {
			rows.Close()
			return nil, err
		}
		p.Status = directory.ProjectStatus(status)
		p.Mail = stringPtr(mail)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	rows.Close()

	owners := make([]directory.User, len(projects))
	for i := range projects {
		owners[i] = projects[i].Owner
	}
	if err := r.attachPhones(ctx, owners); err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].Owner = owners[i]
	}
	return projects, nil
}

// attachPhones loads business phones for users. It runs after the user rows
// are closed because the pool holds a single connection.
func (r *DirectoryRepository) attachPhones(ctx context.Context, users []directory.User) error {
	if len(users) == 0 {
		return nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, phone FROM user_phones ORDER BY user_id, position`)
	if err != nil {
		return fmt.Errorf("failed to query phones: %w", err)
	}
	defer rows.Close()

	phones := make(map[string][]string)
	for rows.Next() {
		var userID, phone string
		if err := rows.Scan(&userID, &phone); err != nil {
			return fmt.Errorf("failed to scan phone: %w", err)
		}
		phones[userID] = append(phones[userID], phone)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate phones: %w", err)
	}

	for i := range users {
		users[i].BusinessPhones = phones[users[i].ID]
	}
	return nil
}

// scanUser scans the user columns, preceded by any extra leading destinations.
func scanUser(rows *sql.Rows, u *directory.User, leading ...any) error {
	var givenName, surname, officeLocation, summary sql.NullString
	dest := append(leading,
		&u.ID,
		&u.DisplayName,
		&givenName,
		&surname,
		&u.Mail,
		&u.JobTitle,
		&u.Department,
		&officeLocation,
		&summary,
	)
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("failed to scan user: %w", err)
	}
	u.GivenName = stringPtr(givenName)
	u.Surname = stringPtr(surname)
	u.OfficeLocation = stringPtr(officeLocation)
	u.Summary = stringPtr(summary)
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
