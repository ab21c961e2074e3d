package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/sprintboard/internal/board"
	"github.com/sumire/sprintboard/internal/domain"
	"github.com/sumire/sprintboard/internal/service"
)

// BoardHandler serves sprint boards and applies drag moves server-side.
type BoardHandler struct {
	sprints *service.SprintService
	issues  *service.IssueService
}

// NewBoardHandler creates a new BoardHandler.
func NewBoardHandler(sprints *service.SprintService, issues *service.IssueService) *BoardHandler {
	return &BoardHandler{sprints: sprints, issues: issues}
}

// BoardResponse is a rendered sprint board.
type BoardResponse struct {
	Sprint    *domain.SprintView `json:"sprint"`
	Lanes     []board.Lane       `json:"lanes"`
	Unplaced  []domain.Issue     `json:"unplaced"`
	Assignees []domain.User      `json:"assignees"`
}

// Get returns the sprint board, optionally filtered.
func (h *BoardHandler) Get(c echo.Context) error {
	var f board.Filter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &f); err != nil {
		return domain.ErrInvalidInput
	}

	ctrl, sprint, err := h.load(c)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, BoardResponse{
		Sprint:    sprint,
		Lanes:     ctrl.Lanes(f),
		Unplaced:  ctrl.Unplaced(),
		Assignees: board.Assignees(ctrl.Issues()),
	})
}

// Move applies a drag gesture to the sprint board and persists the result.
func (h *BoardHandler) Move(c echo.Context) error {
	var m board.Move
	if err := bind(c, &m); err != nil {
		return err
	}

	ctrl, sprint, err := h.load(c)
	if err != nil {
		return err
	}
	if err := ctrl.Drag(c.Request().Context(), m); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, BoardResponse{
		Sprint:    sprint,
		Lanes:     ctrl.Lanes(board.Filter{}),
		Unplaced:  ctrl.Unplaced(),
		Assignees: board.Assignees(ctrl.Issues()),
	})
}

func (h *BoardHandler) load(c echo.Context) (*board.Controller, *domain.SprintView, error) {
	p, ok := GetPrincipal(c)
	if !ok {
		return nil, nil, domain.ErrUnauthorized
	}
	sprintID, err := parseID(c, "id")
	if err != nil {
		return nil, nil, err
	}

	ctx := c.Request().Context()
	sprint, err := h.sprints.Get(ctx, p, sprintID)
	if err != nil {
		return nil, nil, err
	}

	ctrl := board.NewController(callerIssues{issues: h.issues, principal: p}, h.issues.Columns())
	if err := ctrl.Load(ctx, sprint.Sprint); err != nil {
		return nil, nil, err
	}
	return ctrl, sprint, nil
}

// callerIssues binds the issue service to one caller for board.Store.
type callerIssues struct {
	issues    *service.IssueService
	principal domain.Principal
}

func (s callerIssues) ListForSprint(ctx context.Context, sprintID int64) ([]domain.Issue, error) {
	return s.issues.ListForSprint(ctx, s.principal, sprintID)
}

func (s callerIssues) Reorder(ctx context.Context, positions []domain.IssuePosition) error {
	return s.issues.Reorder(ctx, s.principal, positions)
}
