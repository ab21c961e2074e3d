package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/sprintboard/internal/domain"
)

const sprintColumns = `id, project_id, name, start_date, end_date, status, created_at, updated_at`

// SprintRepository handles sprint data access operations.
type SprintRepository struct {
	db *sqlx.DB
}

// NewSprintRepository creates a new SprintRepository.
func NewSprintRepository(db *sqlx.DB) *SprintRepository {
	return &SprintRepository{db: db}
}

// Create inserts a sprint. The status is taken from s as given.
func (r *SprintRepository) Create(ctx context.Context, s domain.Sprint) (*domain.Sprint, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, r.db.Rebind(
		`INSERT INTO sprints (project_id, name, start_date, end_date, status)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`),
		s.ProjectID, s.Name, s.StartDate.UTC(), s.EndDate.UTC(), s.Status)
	if err != nil {
		return nil, fmt.Errorf("insert sprint: %w", err)
	}
	return r.FindByID(ctx, id)
}

// FindByID retrieves a sprint by its ID.
func (r *SprintRepository) FindByID(ctx context.Context, id int64) (*domain.Sprint, error) {
	var s domain.Sprint
	err := r.db.GetContext(ctx, &s,
		r.db.Rebind(`SELECT `+sprintColumns+` FROM sprints WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find sprint by id %d: %w", id, err)
	}
	return &s, nil
}

// ListByProject returns a project's sprints, newest first.
func (r *SprintRepository) ListByProject(ctx context.Context, projectID int64) ([]domain.Sprint, error) {
	sprints := []domain.Sprint{}
	err := r.db.SelectContext(ctx, &sprints, r.db.Rebind(
		`SELECT `+sprintColumns+` FROM sprints WHERE project_id = ?
		 ORDER BY created_at DESC, id DESC`), projectID)
	if err != nil {
		return nil, fmt.Errorf("list sprints of project %d: %w", projectID, err)
	}
	return sprints, nil
}

// UpdateStatus moves a sprint from one status to another.
// It returns domain.ErrConflict when the stored status is no longer from.
func (r *SprintRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.SprintStatus) (*domain.Sprint, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE sprints SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`),
		to, id, from)
	if err != nil {
		return nil, fmt.Errorf("update sprint %d status: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update sprint %d status: %w", id, err)
	}
	if affected == 0 {
		return nil, domain.ErrConflict
	}
	return r.FindByID(ctx, id)
}
