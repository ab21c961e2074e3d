package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/sprintboard/internal/domain"
)

const projectColumns = `id, organization_id, name, project_key, description, created_at, updated_at`

// ProjectRepository handles project data access operations.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts the project together with its admin list.
func (r *ProjectRepository) Create(ctx context.Context, p domain.Project) (*domain.Project, error) {
	var id int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &id, tx.Rebind(
			`INSERT INTO projects (organization_id, name, project_key, description)
			 VALUES (?, ?, ?, ?)
			 RETURNING id`),
			p.OrganizationID, p.Name, p.Key, p.Description)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}

		for _, userID := range p.AdminIDs {
			if _, err := tx.ExecContext(ctx, tx.Rebind(
				`INSERT INTO project_admins (project_id, user_id) VALUES (?, ?)`),
				id, userID); err != nil {
				return fmt.Errorf("insert project admin %d: %w", userID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// FindByID retrieves a project and its admin IDs.
func (r *ProjectRepository) FindByID(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	err := r.db.GetContext(ctx, &p,
		r.db.Rebind(`SELECT `+projectColumns+` FROM projects WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find project by id %d: %w", id, err)
	}

	p.AdminIDs = []int64{}
	if err := r.db.SelectContext(ctx, &p.AdminIDs, r.db.Rebind(
		`SELECT user_id FROM project_admins WHERE project_id = ? ORDER BY user_id`), id); err != nil {
		return nil, fmt.Errorf("list admins of project %d: %w", id, err)
	}
	return &p, nil
}

// ExistsByKey reports whether orgID already has a project with key.
func (r *ProjectRepository) ExistsByKey(ctx context.Context, orgID, key string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(
		`SELECT COUNT(*) FROM projects WHERE organization_id = ? AND project_key = ?`), orgID, key)
	if err != nil {
		return false, fmt.Errorf("count projects with key %s: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes a project; sprints and issues cascade.
func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
