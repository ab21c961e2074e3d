// Package board turns drag-and-drop gestures on a sprint board into column
// order assignments. The reducer is pure; Controller holds the optimistic
// in-memory board and persists each change as one reorder batch.
package board

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sumire/sprintboard/internal/domain"
)

var (
	// ErrSprintPlanned rejects board changes before the sprint starts.
	ErrSprintPlanned = errors.New("start the sprint to update board")
	// ErrSprintCompleted rejects board changes after the sprint ends.
	ErrSprintCompleted = errors.New("cannot update board after sprint end")
	// ErrBusy rejects a change while a previous one is still being persisted.
	ErrBusy = errors.New("board update already in progress")
)

// Move is a drag gesture from one column position to another.
type Move struct {
	SourceColumn domain.IssueStatus `json:"source_column" validate:"required"`
	SourceIndex  int                `json:"source_index" validate:"gte=0"`
	DestColumn   domain.IssueStatus `json:"dest_column" validate:"required"`
	DestIndex    int                `json:"dest_index" validate:"gte=0"`
}

// Noop reports whether the move drops the card where it was picked up.
func (m Move) Noop() bool {
	return m.SourceColumn == m.DestColumn && m.SourceIndex == m.DestIndex
}

// Validate checks the move against the board's columns.
func (m Move) Validate(columns domain.Columns) error {
	if !columns.Contains(m.SourceColumn) {
		return &domain.ValidationError{Field: "source_column", Message: "unknown column " + string(m.SourceColumn)}
	}
	if !columns.Contains(m.DestColumn) {
		return &domain.ValidationError{Field: "dest_column", Message: "unknown column " + string(m.DestColumn)}
	}
	if m.SourceIndex < 0 {
		return &domain.ValidationError{Field: "source_index", Message: "must not be negative"}
	}
	if m.DestIndex < 0 {
		return &domain.ValidationError{Field: "dest_index", Message: "must not be negative"}
	}
	return nil
}

// CheckSprint reports whether a board in the given sprint accepts changes.
func CheckSprint(sprint domain.Sprint) error {
	switch sprint.Status {
	case domain.SprintStatusPlanned:
		return ErrSprintPlanned
	case domain.SprintStatusCompleted:
		return ErrSprintCompleted
	}
	return nil
}

// Apply returns the board issues after m, with fresh 0-based order values in
// every affected column. changed is false when the move is a no-op. issues
// is not modified.
func Apply(sprint domain.Sprint, issues []domain.Issue, columns domain.Columns, m Move) (next []domain.Issue, changed bool, err error) {
	if err := CheckSprint(sprint); err != nil {
		return issues, false, err
	}
	if err := m.Validate(columns); err != nil {
		return issues, false, err
	}
	if m.Noop() {
		return issues, false, nil
	}

	source := Column(issues, m.SourceColumn)
	if m.SourceIndex >= len(source) {
		return issues, false, &domain.ValidationError{
			Field:   "source_index",
			Message: fmt.Sprintf("column %s has %d issues", m.SourceColumn, len(source)),
		}
	}

	var rest []domain.Issue
	for _, issue := range issues {
		if issue.Status != m.SourceColumn && issue.Status != m.DestColumn {
			rest = append(rest, issue)
		}
	}

	if m.SourceColumn == m.DestColumn {
		if m.DestIndex >= len(source) {
			return issues, false, &domain.ValidationError{
				Field:   "dest_index",
				Message: fmt.Sprintf("column %s has %d issues", m.DestColumn, len(source)),
			}
		}
		moved := source[m.SourceIndex]
		source = remove(source, m.SourceIndex)
		source = insert(source, m.DestIndex, moved)
		renumber(source)
		return merge(rest, source), true, nil
	}

	dest := Column(issues, m.DestColumn)
	if m.DestIndex > len(dest) {
		return issues, false, &domain.ValidationError{
			Field:   "dest_index",
			Message: fmt.Sprintf("column %s has %d issues", m.DestColumn, len(dest)),
		}
	}

	moved := source[m.SourceIndex]
	moved.Status = m.DestColumn
	source = remove(source, m.SourceIndex)
	dest = insert(dest, m.DestIndex, moved)
	renumber(source)
	renumber(dest)
	return merge(rest, source, dest), true, nil
}

// Column returns a fresh copy of the issues in status, in display order.
func Column(issues []domain.Issue, status domain.IssueStatus) []domain.Issue {
	var col []domain.Issue
	for _, issue := range issues {
		if issue.Status == status {
			col = append(col, issue)
		}
	}
	sort.SliceStable(col, func(i, j int) bool { return col[i].Order < col[j].Order })
	return col
}

// Affected returns the issues in the columns m picks from or drops into,
// keeping their relative order. No other column changes in a move.
func Affected(issues []domain.Issue, m Move) []domain.Issue {
	var out []domain.Issue
	for _, issue := range issues {
		if issue.Status == m.SourceColumn || issue.Status == m.DestColumn {
			out = append(out, issue)
		}
	}
	return out
}

// Positions converts issues into a reorder batch.
func Positions(issues []domain.Issue) []domain.IssuePosition {
	out := make([]domain.IssuePosition, len(issues))
	for i, issue := range issues {
		out[i] = issue.Position()
	}
	return out
}

func remove(list []domain.Issue, i int) []domain.Issue {
	out := make([]domain.Issue, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func insert(list []domain.Issue, i int, issue domain.Issue) []domain.Issue {
	out := make([]domain.Issue, 0, len(list)+1)
	out = append(out, list[:i]...)
	out = append(out, issue)
	return append(out, list[i:]...)
}

func renumber(list []domain.Issue) {
	for i := range list {
		list[i].Order = i
	}
}

// merge recombines partitions and sorts by order alone. Order is column
// scoped, so each column's sequence survives the merge.
func merge(parts ...[]domain.Issue) []domain.Issue {
	var out []domain.Issue
	for _, p := range parts {
		out = append(out, p...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
