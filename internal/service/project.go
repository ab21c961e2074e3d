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

// ProjectStore defines the project data access interface.
type ProjectStore interface {
	Create(ctx context.Context, p domain.Project) (*domain.Project, error)
	FindByID(ctx context.Context, id int64) (*domain.Project, error)
	ExistsByKey(ctx context.Context, orgID, key string) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// CreateProjectInput holds the fields accepted when creating a project.
type CreateProjectInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Key         string  `json:"key" validate:"required,min=2,max=10,alphanum"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// ProjectDetail is a project together with its sprints.
type ProjectDetail struct {
	domain.Project
	Sprints []domain.SprintView `json:"sprints"`
}

// ProjectService manages projects within an organization.
type ProjectService struct {
	projects ProjectStore
	sprints  SprintStore
	now      func() time.Time
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects ProjectStore, sprints SprintStore) *ProjectService {
	return &ProjectService{projects: projects, sprints: sprints, now: time.Now}
}

// Create adds a project to the caller's organization. Only organization
// admins may create projects, and keys are unique per organization.
func (s *ProjectService) Create(ctx context.Context, p domain.Principal, in CreateProjectInput) (*domain.Project, error) {
	if !p.HasOrg() {
		return nil, domain.ErrUnauthorized
	}
	if p.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("only organization admins can create projects: %w", domain.ErrForbidden)
	}

	key := strings.ToUpper(strings.TrimSpace(in.Key))
	exists, err := s.projects.ExistsByKey(ctx, p.OrganizationID, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("project key %s already exists: %w", key, domain.ErrConflict)
	}

	project, err := s.projects.Create(ctx, domain.Project{
		OrganizationID: p.OrganizationID,
		Name:           strings.TrimSpace(in.Name),
		Key:            key,
		Description:    in.Description,
		AdminIDs:       []int64{p.UserID},
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	slog.Info("project created", "project_id", project.ID, "organization_id", p.OrganizationID, "key", key)
	return project, nil
}

// Get returns the project with its sprints, newest first.
func (s *ProjectService) Get(ctx context.Context, p domain.Principal, id int64) (*ProjectDetail, error) {
	project, err := s.projectInOrg(ctx, p, id)
	if err != nil {
		return nil, err
	}

	sprints, err := s.sprints.ListByProject(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]domain.SprintView, 0, len(sprints))
	for _, sp := range sprints {
		views = append(views, sp.View(now))
	}
	return &ProjectDetail{Project: *project, Sprints: views}, nil
}

// Delete removes a project. Only organization admins may delete projects.
func (s *ProjectService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	if !p.HasOrg() {
		return domain.ErrUnauthorized
	}
	if p.Role != domain.RoleAdmin {
		return fmt.Errorf("only organization admins can delete projects: %w", domain.ErrForbidden)
	}

	if _, err := s.projectInOrg(ctx, p, id); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("project deleted", "project_id", id, "organization_id", p.OrganizationID)
	return nil
}

// projectInOrg loads a project, hiding projects of other organizations.
func (s *ProjectService) projectInOrg(ctx context.Context, p domain.Principal, id int64) (*domain.Project, error) {
	return loadProjectInOrg(ctx, s.projects, p, id)
}

func loadProjectInOrg(ctx context.Context, projects ProjectStore, p domain.Principal, id int64) (*domain.Project, error) {
	if !p.HasOrg() {
		return nil, domain.ErrUnauthorized
	}

	project, err := projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	if project.OrganizationID != p.OrganizationID {
		return nil, fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
	}
	return project, nil
}
