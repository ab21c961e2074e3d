package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/sprintboard/internal/domain"
)

const issueColumns = `id, project_id, sprint_id, title, description, status, priority, sort_order,
	reporter_id, assignee_id, created_at, updated_at`

// IssueRepository handles issue data access and column ordering.
type IssueRepository struct {
	db *sqlx.DB
}

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create appends the issue to the end of its (project, status) column.
// The order lookup ignores the sprint so order stays monotonic per column
// across the whole project.
func (r *IssueRepository) Create(ctx context.Context, issue domain.Issue) (*domain.Issue, error) {
	var id int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if r.db.DriverName() == DriverPostgres {
			// Serialise appends per project; sqlite already has a single writer.
			if _, err := tx.ExecContext(ctx,
				`SELECT id FROM projects WHERE id = $1 FOR UPDATE`, issue.ProjectID); err != nil {
				return fmt.Errorf("lock project %d: %w", issue.ProjectID, err)
			}
		}

		var last sql.NullInt64
		if err := tx.GetContext(ctx, &last, tx.Rebind(
			`SELECT MAX(sort_order) FROM issues WHERE project_id = ? AND status = ?`),
			issue.ProjectID, issue.Status); err != nil {
			return fmt.Errorf("select last order: %w", err)
		}
		order := domain.NextOrder(int(last.Int64), last.Valid)

		err := tx.GetContext(ctx, &id, tx.Rebind(
			`INSERT INTO issues (project_id, sprint_id, title, description, status, priority,
			                     sort_order, reporter_id, assignee_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`),
			issue.ProjectID, issue.SprintID, issue.Title, issue.Description, issue.Status,
			issue.Priority, order, issue.ReporterID, issue.AssigneeID)
		if err != nil {
			return fmt.Errorf("insert issue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// FindByID retrieves an issue by its ID.
func (r *IssueRepository) FindByID(ctx context.Context, id int64) (*domain.Issue, error) {
	var issue domain.Issue
	err := r.db.GetContext(ctx, &issue,
		r.db.Rebind(`SELECT `+issueColumns+` FROM issues WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find issue by id %d: %w", id, err)
	}
	return &issue, nil
}

// ListBySprint returns the sprint's issues ordered by status, then order.
func (r *IssueRepository) ListBySprint(ctx context.Context, sprintID int64) ([]domain.Issue, error) {
	issues := []domain.Issue{}
	err := r.db.SelectContext(ctx, &issues, r.db.Rebind(
		`SELECT `+issueColumns+` FROM issues WHERE sprint_id = ?
		 ORDER BY status ASC, sort_order ASC, id ASC`), sprintID)
	if err != nil {
		return nil, fmt.Errorf("list issues of sprint %d: %w", sprintID, err)
	}
	return issues, nil
}

// ListByIDs returns the issues with the given IDs in unspecified order.
// Missing IDs are simply absent from the result.
func (r *IssueRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Issue, error) {
	issues := []domain.Issue{}
	if len(ids) == 0 {
		return issues, nil
	}

	query, args, err := sqlx.In(`SELECT `+issueColumns+` FROM issues WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build issue id query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &issues, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list issues by id: %w", err)
	}
	return issues, nil
}

// Update sets the status and priority of an issue, leaving its order untouched.
func (r *IssueRepository) Update(ctx context.Context, id int64, status domain.IssueStatus, priority domain.IssuePriority) (*domain.Issue, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE issues SET status = ?, priority = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`),
		status, priority, id)
	if err != nil {
		return nil, fmt.Errorf("update issue %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update issue %d: %w", id, err)
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete removes an issue. Sibling order values are left as they are.
func (r *IssueRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM issues WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete issue %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete issue %d: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Reorder applies every (status, order) pair in one transaction.
// If any row is missing, nothing is written and domain.ErrNotFound is returned.
func (r *IssueRepository) Reorder(ctx context.Context, positions []domain.IssuePosition) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(
			`UPDATE issues SET status = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`))
		if err != nil {
			return fmt.Errorf("prepare reorder: %w", err)
		}
		defer stmt.Close()

		for _, p := range positions {
			res, err := stmt.ExecContext(ctx, p.Status, p.Order, p.ID)
			if err != nil {
				return fmt.Errorf("reorder issue %d: %w", p.ID, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("reorder issue %d: %w", p.ID, err)
			}
			if affected == 0 {
				return fmt.Errorf("reorder issue %d: %w", p.ID, domain.ErrNotFound)
			}
		}
		return nil
	})
}
