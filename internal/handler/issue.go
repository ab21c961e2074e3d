package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/sprintboard/internal/domain"
	"github.com/sumire/sprintboard/internal/service"
)

// IssueHandler handles issue endpoints.
type IssueHandler struct {
	issues *service.IssueService
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(issues *service.IssueService) *IssueHandler {
	return &IssueHandler{issues: issues}
}

// Create files a new issue in a project.
func (h *IssueHandler) Create(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	projectID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req service.CreateIssueInput
	if err := bind(c, &req); err != nil {
		return err
	}

	issue, err := h.issues.Create(c.Request().Context(), p, projectID, req)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, issue)
}

// ListForSprint returns a sprint's issues ordered by status and order.
func (h *IssueHandler) ListForSprint(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	sprintID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	issues, err := h.issues.ListForSprint(c.Request().Context(), p, sprintID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, issues)
}

type reorderRequest struct {
	Issues []domain.IssuePosition `json:"issues" validate:"required,min=1,dive"`
}

// Reorder persists a batch of status and order assignments.
func (h *IssueHandler) Reorder(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var req reorderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.issues.Reorder(c.Request().Context(), p, req.Issues); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]bool{"success": true})
}

// Update changes an issue's status and priority.
func (h *IssueHandler) Update(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req service.UpdateIssueInput
	if err := bind(c, &req); err != nil {
		return err
	}

	issue, err := h.issues.Update(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, issue)
}

// Delete removes an issue.
func (h *IssueHandler) Delete(c echo.Context) error {
	p, ok := GetPrincipal(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.issues.Delete(c.Request().Context(), p, id); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]bool{"success": true})
}
