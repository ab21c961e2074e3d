package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sumire/sprintboard/internal/domain"
)

// SprintStore defines the sprint data access interface.
type SprintStore interface {
	Create(ctx context.Context, s domain.Sprint) (*domain.Sprint, error)
	FindByID(ctx context.Context, id int64) (*domain.Sprint, error)
	ListByProject(ctx context.Context, projectID int64) ([]domain.Sprint, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.SprintStatus) (*domain.Sprint, error)
}

// CreateSprintInput holds the fields accepted when creating a sprint.
type CreateSprintInput struct {
	Name      string    `json:"name" validate:"required,max=100"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

// SprintService enforces the sprint state machine.
type SprintService struct {
	sprints  SprintStore
	projects ProjectStore
	now      func() time.Time
}

// NewSprintService creates a new SprintService.
func NewSprintService(sprints SprintStore, projects ProjectStore) *SprintService {
	return &SprintService{sprints: sprints, projects: projects, now: time.Now}
}

// Create adds a PLANNED sprint to a project. Only organization admins may create sprints.
func (s *SprintService) Create(ctx context.Context, p domain.Principal, projectID int64, in CreateSprintInput) (*domain.SprintView, error) {
	if !p.HasOrg() {
		return nil, domain.ErrUnauthorized
	}
	if p.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("only organization admins can create sprints: %w", domain.ErrForbidden)
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, &domain.ValidationError{Field: "end_date", Message: "must be after start_date"}
	}

	if _, err := loadProjectInOrg(ctx, s.projects, p, projectID); err != nil {
		return nil, err
	}

	sprint, err := s.sprints.Create(ctx, domain.Sprint{
		ProjectID: projectID,
		Name:      strings.TrimSpace(in.Name),
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    domain.SprintStatusPlanned,
	})
	if err != nil {
		return nil, fmt.Errorf("create sprint: %w", err)
	}

	slog.Info("sprint created", "sprint_id", sprint.ID, "project_id", projectID)
	view := sprint.View(s.now())
	return &view, nil
}

// Get returns a sprint of the caller's organization.
func (s *SprintService) Get(ctx context.Context, p domain.Principal, id int64) (*domain.SprintView, error) {
	sprint, _, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	view := sprint.View(s.now())
	return &view, nil
}

// List returns a project's sprints, newest first.
func (s *SprintService) List(ctx context.Context, p domain.Principal, projectID int64) ([]domain.SprintView, error) {
	if _, err := loadProjectInOrg(ctx, s.projects, p, projectID); err != nil {
		return nil, err
	}

	sprints, err := s.sprints.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]domain.SprintView, 0, len(sprints))
	for _, sp := range sprints {
		views = append(views, sp.View(now))
	}
	return views, nil
}

// Transition moves a sprint to target. Starting requires a PLANNED sprint
// inside its date range; completing requires an ACTIVE sprint, even past its
// end date. Issues are not touched.
func (s *SprintService) Transition(ctx context.Context, p domain.Principal, id int64, target domain.SprintStatus) (*domain.SprintView, error) {
	if !p.HasOrg() {
		return nil, domain.ErrUnauthorized
	}

	sprint, err := s.sprints.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("sprint %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}

	project, err := s.projects.FindByID(ctx, sprint.ProjectID)
	if err != nil {
		return nil, err
	}
	if !p.IsOrgAdmin(project.OrganizationID) {
		return nil, fmt.Errorf("only organization admins can change sprint status: %w", domain.ErrForbidden)
	}

	now := s.now()
	if err := sprint.CheckTransition(target, now); err != nil {
		return nil, err
	}

	updated, err := s.sprints.UpdateStatus(ctx, id, sprint.Status, target)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, &domain.TransitionError{From: sprint.Status, To: target, Message: "sprint status changed concurrently"}
		}
		return nil, err
	}

	slog.Info("sprint transitioned", "sprint_id", id, "from", sprint.Status, "to", target)
	view := updated.View(now)
	return &view, nil
}

// load returns a sprint and its project, hiding sprints of other organizations.
func (s *SprintService) load(ctx context.Context, p domain.Principal, id int64) (*domain.Sprint, *domain.Project, error) {
	if !p.HasOrg() {
		return nil, nil, domain.ErrUnauthorized
	}

	sprint, err := s.sprints.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("sprint %d: %w", id, domain.ErrNotFound)
		}
		return nil, nil, err
	}

	project, err := loadProjectInOrg(ctx, s.projects, p, sprint.ProjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("sprint %d: %w", id, domain.ErrNotFound)
		}
		return nil, nil, err
	}
	return sprint, project, nil
}
