package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sumire/sprintboard/internal/domain"
)

// Store loads and persists a sprint's issues on behalf of one caller.
type Store interface {
	ListForSprint(ctx context.Context, sprintID int64) ([]domain.Issue, error)
	Reorder(ctx context.Context, positions []domain.IssuePosition) error
}

// Controller holds the optimistic state of one sprint board.
//
// A drag is applied to local state before it is persisted. When persisting
// fails the board is restored to its state before the drag.
type Controller struct {
	store   Store
	columns domain.Columns

	mu      sync.Mutex
	sprint  domain.Sprint
	issues  []domain.Issue
	pending bool
}

// NewController creates a Controller for the given columns.
func NewController(store Store, columns domain.Columns) *Controller {
	if len(columns) == 0 {
		columns = domain.DefaultColumns
	}
	return &Controller{store: store, columns: columns}
}

// Load replaces the board with the sprint's stored issues.
func (c *Controller) Load(ctx context.Context, sprint domain.Sprint) error {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	issues, err := c.store.ListForSprint(ctx, sprint.ID)
	if err != nil {
		return fmt.Errorf("load sprint %d: %w", sprint.ID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sprint = sprint
	c.issues = issues
	return nil
}

// SetSprint updates the sprint after a status change without reloading issues.
func (c *Controller) SetSprint(sprint domain.Sprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sprint = sprint
}

// Sprint returns the sprint the board shows.
func (c *Controller) Sprint() domain.Sprint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sprint
}

// Issues returns a copy of the board's issues.
func (c *Controller) Issues() []domain.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Issue(nil), c.issues...)
}

// Pending reports whether a drag is being persisted.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Lanes returns the board grouped into columns after applying f.
func (c *Controller) Lanes(f Filter) []Lane {
	return Lanes(f.Apply(c.Issues()), c.columns)
}

// Unplaced returns the issues whose status is not a board column.
func (c *Controller) Unplaced() []domain.Issue {
	return Unplaced(c.Issues(), c.columns)
}

// Drag applies m locally and persists the affected columns as one batch.
// Issues in columns the board no longer shows are carried along untouched.
func (c *Controller) Drag(ctx context.Context, m Move) error {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return ErrBusy
	}

	prev := c.issues
	next, changed, err := Apply(c.sprint, prev, c.columns, m)
	if err != nil || !changed {
		c.mu.Unlock()
		return err
	}
	c.issues = next
	c.pending = true
	sprintID := c.sprint.ID
	c.mu.Unlock()

	err = c.store.Reorder(ctx, Positions(Affected(next, m)))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	if err != nil {
		c.issues = prev
		slog.Warn("board update rolled back", "sprint_id", sprintID, "error", err)
		return fmt.Errorf("persist board: %w", err)
	}
	return nil
}
