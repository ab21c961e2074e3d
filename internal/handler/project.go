package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/sprintboard/internal/domain"
	"github.com/sumire/sprintboard/internal/service"
)

// ProjectHandler handles project endpoints.
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Create adds a project to the caller's organization.
func (h *ProjectHandler) Create(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var req service.CreateProjectInput
	if err := bind(c, &req); err != nil {
		return err
	}

	project, err := h.projects.Create(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, project)
}

// Get returns a project with its sprints.
func (h *ProjectHandler) Get(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	project, err := h.projects.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, project)
}

// Delete removes a project.
func (h *ProjectHandler) Delete(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.projects.Delete(c.Request().Context(), p, id); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]bool{"success": true})
}
