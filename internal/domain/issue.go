package domain

import "time"

// IssueStatus is the board column key an issue currently sits in.
type IssueStatus string

const (
	IssueStatusTodo       IssueStatus = "TODO"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusInReview   IssueStatus = "IN_REVIEW"
	IssueStatusDone       IssueStatus = "DONE"
)

// DefaultColumns is the column set used when none is configured.
var DefaultColumns = Columns{IssueStatusTodo, IssueStatusInProgress, IssueStatusInReview, IssueStatusDone}

// Columns is the ordered set of board column keys.
type Columns []IssueStatus

// Contains reports whether status is a configured column.
func (c Columns) Contains(status IssueStatus) bool {
	for _, col := range c {
		if col == status {
			return true
		}
	}
	return false
}

// IssuePriority ranks the urgency of an issue.
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "LOW"
	IssuePriorityMedium IssuePriority = "MEDIUM"
	IssuePriorityHigh   IssuePriority = "HIGH"
	IssuePriorityUrgent IssuePriority = "URGENT"
)

// Issue represents a task within a project, optionally planned into a sprint.
type Issue struct {
	ID          int64         `json:"id" db:"id"`
	ProjectID   int64         `json:"project_id" db:"project_id"`
	SprintID    *int64        `json:"sprint_id,omitempty" db:"sprint_id"`
	Title       string        `json:"title" db:"title"`
	Description *string       `json:"description,omitempty" db:"description"`
	Status      IssueStatus   `json:"status" db:"status"`
	Priority    IssuePriority `json:"priority" db:"priority"`
	Order       int           `json:"order" db:"sort_order"`
	ReporterID  int64         `json:"reporter_id" db:"reporter_id"`
	AssigneeID  *int64        `json:"assignee_id,omitempty" db:"assignee_id"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`

	Reporter *User `json:"reporter,omitempty" db:"-"`
	Assignee *User `json:"assignee,omitempty" db:"-"`
}

// WithPosition returns a copy of the issue placed at order within status.
func (i Issue) WithPosition(status IssueStatus, order int) Issue {
	i.Status = status
	i.Order = order
	return i
}

// Position returns the issue's column placement as a reorder entry.
func (i Issue) Position() IssuePosition {
	return IssuePosition{ID: i.ID, Status: i.Status, Order: i.Order}
}

// IssuePosition is one row of a reorder batch.
type IssuePosition struct {
	ID     int64       `json:"id" validate:"required"`
	Status IssueStatus `json:"status" validate:"required"`
	Order  int         `json:"order" validate:"gte=0"`
}

// NextOrder returns the order for a new issue appended to a column whose
// current highest order is last. ok is false for an empty column.
func NextOrder(last int, ok bool) int {
	if !ok {
		return 0
	}
	return last + 1
}
