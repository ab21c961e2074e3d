package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sumire/sprintboard/internal/domain"
)

// IssueStore defines the issue data access interface.
type IssueStore interface {
	Create(ctx context.Context, issue domain.Issue) (*domain.Issue, error)
	FindByID(ctx context.Context, id int64) (*domain.Issue, error)
	ListBySprint(ctx context.Context, sprintID int64) ([]domain.Issue, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Issue, error)
	Update(ctx context.Context, id int64, status domain.IssueStatus, priority domain.IssuePriority) (*domain.Issue, error)
	Delete(ctx context.Context, id int64) error
	Reorder(ctx context.Context, positions []domain.IssuePosition) error
}

// CreateIssueInput holds the fields accepted when creating an issue.
type CreateIssueInput struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Description *string              `json:"description"`
	Status      domain.IssueStatus   `json:"status" validate:"required"`
	Priority    domain.IssuePriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
	SprintID    *int64               `json:"sprint_id"`
	AssigneeID  *int64               `json:"assignee_id"`
}

// UpdateIssueInput holds the fields accepted when updating an issue.
type UpdateIssueInput struct {
	Status   domain.IssueStatus   `json:"status" validate:"required"`
	Priority domain.IssuePriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
}

// IssueService assigns and maintains the column order of issues.
type IssueService struct {
	issues   IssueStore
	sprints  SprintStore
	projects ProjectStore
	users    UserStore
	columns  domain.Columns
}

// NewIssueService creates a new IssueService for the given board columns.
func NewIssueService(issues IssueStore, sprints SprintStore, projects ProjectStore, users UserStore, columns domain.Columns) *IssueService {
	if len(columns) == 0 {
		columns = domain.DefaultColumns
	}
	return &IssueService{
		issues:   issues,
		sprints:  sprints,
		projects: projects,
		users:    users,
		columns:  columns,
	}
}

// Columns returns the configured board column keys.
func (s *IssueService) Columns() domain.Columns {
	return s.columns
}

// Create files a new issue at the end of its (project, status) column with
// the caller as reporter.
func (s *IssueService) Create(ctx context.Context, p domain.Principal, projectID int64, in CreateIssueInput) (*domain.Issue, error) {
	if !p.HasOrg() {
		return nil, domain.ErrUnauthorized
	}

	if err := s.checkCaller(ctx, p); err != nil {
		return nil, err
	}

	if _, err := loadProjectInOrg(ctx, s.projects, p, projectID); err != nil {
		return nil, err
	}

	if !s.columns.Contains(in.Status) {
		return nil, &domain.ValidationError{Field: "status", Message: "unknown column " + string(in.Status)}
	}

	if in.SprintID != nil {
		sprint, err := s.sprints.FindByID(ctx, *in.SprintID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.ValidationError{Field: "sprint_id", Message: "sprint does not exist"}
			}
			return nil, err
		}
		if sprint.ProjectID != projectID {
			return nil, &domain.ValidationError{Field: "sprint_id", Message: "sprint belongs to another project"}
		}
	}

	if in.AssigneeID != nil {
		if _, err := s.users.FindByID(ctx, *in.AssigneeID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.ValidationError{Field: "assignee_id", Message: "user does not exist"}
			}
			return nil, err
		}
	}

	issue, err := s.issues.Create(ctx, domain.Issue{
		ProjectID:   projectID,
		SprintID:    in.SprintID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		ReporterID:  p.UserID,
		AssigneeID:  in.AssigneeID,
	})
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	slog.Info("issue created", "issue_id", issue.ID, "project_id", projectID, "status", issue.Status, "order", issue.Order)
	return s.withPeopleOf(ctx, issue)
}

// ListForSprint returns the sprint's issues ordered by status, then order.
func (s *IssueService) ListForSprint(ctx context.Context, p domain.Principal, sprintID int64) ([]domain.Issue, error) {
	if !p.HasOrg() {
		return nil, domain.ErrUnauthorized
	}

	sprint, err := s.sprints.FindByID(ctx, sprintID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("sprint %d: %w", sprintID, domain.ErrNotFound)
		}
		return nil, err
	}
	if err := s.checkProjectOrg(ctx, p, sprint.ProjectID); err != nil {
		return nil, err
	}

	issues, err := s.issues.ListBySprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if err := s.withPeople(ctx, issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// Reorder persists a batch of (status, order) assignments atomically.
// Order values are computed by the board; the batch is only checked for
// internal consistency and ownership.
func (s *IssueService) Reorder(ctx context.Context, p domain.Principal, positions []domain.IssuePosition) error {
	if !p.HasOrg() {
		return domain.ErrUnauthorized
	}
	if err := s.validatePositions(positions); err != nil {
		return err
	}

	ids := make([]int64, len(positions))
	for i, pos := range positions {
		ids[i] = pos.ID
	}
	existing, err := s.issues.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(existing) != len(ids) {
		return fmt.Errorf("reorder references missing issues: %w", domain.ErrNotFound)
	}

	checked := make(map[int64]bool)
	for _, issue := range existing {
		if checked[issue.ProjectID] {
			continue
		}
		if err := s.checkProjectOrg(ctx, p, issue.ProjectID); err != nil {
			return err
		}
		checked[issue.ProjectID] = true
	}

	if err := s.issues.Reorder(ctx, positions); err != nil {
		return fmt.Errorf("reorder issues: %w", err)
	}

	slog.Info("issues reordered", "count", len(positions), "organization_id", p.OrganizationID)
	return nil
}

func (s *IssueService) validatePositions(positions []domain.IssuePosition) error {
	if len(positions) == 0 {
		return &domain.ValidationError{Field: "issues", Message: "must not be empty"}
	}

	type slot struct {
		status domain.IssueStatus
		order  int
	}
	seenIDs := make(map[int64]bool, len(positions))
	seenSlots := make(map[slot]int64, len(positions))

	for _, pos := range positions {
		if seenIDs[pos.ID] {
			return &domain.ValidationError{Field: "issues", Message: fmt.Sprintf("issue %d appears more than once", pos.ID)}
		}
		seenIDs[pos.ID] = true

		if !s.columns.Contains(pos.Status) {
			return &domain.ValidationError{Field: "status", Message: "unknown column " + string(pos.Status)}
		}
		if pos.Order < 0 {
			return &domain.ValidationError{Field: "order", Message: "must not be negative"}
		}

		key := slot{pos.Status, pos.Order}
		if other, dup := seenSlots[key]; dup {
			return &domain.ValidationError{
				Field:   "order",
				Message: fmt.Sprintf("issues %d and %d share order %d in %s", other, pos.ID, pos.Order, pos.Status),
			}
		}
		seenSlots[key] = pos.ID
	}
	return nil
}

// Update changes an issue's status and priority. Its order is left as is.
func (s *IssueService) Update(ctx context.Context, p domain.Principal, issueID int64, in UpdateIssueInput) (*domain.Issue, error) {
	if !p.HasOrg() {
		return nil, domain.ErrUnauthorized
	}

	issue, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if err := s.checkProjectOrg(ctx, p, issue.ProjectID); err != nil {
		return nil, err
	}
	if !s.columns.Contains(in.Status) {
		return nil, &domain.ValidationError{Field: "status", Message: "unknown column " + string(in.Status)}
	}

	updated, err := s.issues.Update(ctx, issueID, in.Status, in.Priority)
	if err != nil {
		return nil, err
	}
	return s.withPeopleOf(ctx, updated)
}

// Delete removes an issue. Only its reporter or a project or organization
// admin may delete it. Remaining issues keep their order values.
func (s *IssueService) Delete(ctx context.Context, p domain.Principal, issueID int64) error {
	if !p.HasOrg() {
		return domain.ErrUnauthorized
	}
	if err := s.checkCaller(ctx, p); err != nil {
		return err
	}

	issue, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return err
	}

	project, err := s.projects.FindByID(ctx, issue.ProjectID)
	if err != nil {
		return err
	}
	if project.OrganizationID != p.OrganizationID {
		return domain.ErrUnauthorized
	}

	if issue.ReporterID != p.UserID && !project.IsAdmin(p.UserID) && !p.IsOrgAdmin(project.OrganizationID) {
		return fmt.Errorf("only the reporter or an admin can delete issue %d: %w", issueID, domain.ErrForbidden)
	}

	if err := s.issues.Delete(ctx, issueID); err != nil {
		return err
	}

	slog.Info("issue deleted", "issue_id", issueID, "user_id", p.UserID)
	return nil
}

// checkCaller rejects sessions whose user record no longer exists.
func (s *IssueService) checkCaller(ctx context.Context, p domain.Principal) error {
	if _, err := s.users.FindByID(ctx, p.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user %d: %w", p.UserID, domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// withPeople fills Reporter and Assignee on each issue with one user lookup.
func (s *IssueService) withPeople(ctx context.Context, issues []domain.Issue) error {
	seen := make(map[int64]bool)
	var ids []int64
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, issue := range issues {
		add(issue.ReporterID)
		if issue.AssigneeID != nil {
			add(*issue.AssigneeID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load issue users: %w", err)
	}
	byID := make(map[int64]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	for i := range issues {
		issues[i].Reporter = byID[issues[i].ReporterID]
		if id := issues[i].AssigneeID; id != nil {
			issues[i].Assignee = byID[*id]
		}
	}
	return nil
}

func (s *IssueService) withPeopleOf(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	one := []domain.Issue{*issue}
	if err := s.withPeople(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// checkProjectOrg rejects access to projects of other organizations.
func (s *IssueService) checkProjectOrg(ctx context.Context, p domain.Principal, projectID int64) error {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OrganizationID != p.OrganizationID {
		return domain.ErrUnauthorized
	}
	return nil
}
