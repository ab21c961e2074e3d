package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/sprintboard/internal/domain"
	"github.com/sumire/sprintboard/internal/service"
)

// SprintHandler handles sprint endpoints.
type SprintHandler struct {
	sprints *service.SprintService
}

// NewSprintHandler creates a new SprintHandler.
func NewSprintHandler(sprints *service.SprintService) *SprintHandler {
	return &SprintHandler{sprints: sprints}
}

// Create adds a sprint to a project.
func (h *SprintHandler) Create(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	projectID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req service.CreateSprintInput
	if err := bind(c, &req); err != nil {
		return err
	}

	sprint, err := h.sprints.Create(c.Request().Context(), p, projectID, req)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, sprint)
}

// List returns a project's sprints.
func (h *SprintHandler) List(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	projectID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	sprints, err := h.sprints.List(c.Request().Context(), p, projectID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, sprints)
}

// Get returns a single sprint.
func (h *SprintHandler) Get(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	sprint, err := h.sprints.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, sprint)
}

type transitionRequest struct {
	Status domain.SprintStatus `json:"status" validate:"required"`
}

// TransitionResponse reports the outcome of a sprint status change.
type TransitionResponse struct {
	Success bool               `json:"success"`
	Sprint  *domain.SprintView `json:"sprint"`
}

// Transition changes a sprint's status.
func (h *SprintHandler) Transition(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req transitionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sprint, err := h.sprints.Transition(c.Request().Context(), p, id, req.Status)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, TransitionResponse{Success: true, Sprint: sprint})
}
