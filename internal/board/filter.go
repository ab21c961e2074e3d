package board

import (
	"sort"
	"strings"

	"github.com/sumire/sprintboard/internal/domain"
)

// Filter narrows the visible board without touching stored order or status.
type Filter struct {
	Search    string               `json:"search" query:"search"`
	Assignees []int64              `json:"assignees" query:"assignee"`
	Priority  domain.IssuePriority `json:"priority" query:"priority"`
}

// Active reports whether any criterion is set.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Search) != "" || len(f.Assignees) > 0 || f.Priority != ""
}

// Match reports whether issue passes every set criterion.
func (f Filter) Match(issue domain.Issue) bool {
	if q := strings.TrimSpace(f.Search); q != "" &&
		!strings.Contains(strings.ToLower(issue.Title), strings.ToLower(q)) {
		return false
	}
	if len(f.Assignees) > 0 {
		if issue.AssigneeID == nil || !containsID(f.Assignees, *issue.AssigneeID) {
			return false
		}
	}
	if f.Priority != "" && issue.Priority != f.Priority {
		return false
	}
	return true
}

// Apply returns the matching issues in their current order.
func (f Filter) Apply(issues []domain.Issue) []domain.Issue {
	out := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if f.Match(issue) {
			out = append(out, issue)
		}
	}
	return out
}

// Assignees returns the distinct users assigned on the board, sorted by
// display name. Issues without a loaded assignee record are skipped.
func Assignees(issues []domain.Issue) []domain.User {
	seen := make(map[int64]bool)
	users := []domain.User{}
	for _, issue := range issues {
		if issue.Assignee == nil || seen[issue.Assignee.ID] {
			continue
		}
		seen[issue.Assignee.ID] = true
		users = append(users, *issue.Assignee)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].DisplayName != users[j].DisplayName {
			return users[i].DisplayName < users[j].DisplayName
		}
		return users[i].ID < users[j].ID
	})
	return users
}

// Lane is one rendered board column.
type Lane struct {
	Status domain.IssueStatus `json:"status"`
	Issues []domain.Issue     `json:"issues"`
}

// Lanes groups issues into the configured columns, each in display order.
func Lanes(issues []domain.Issue, columns domain.Columns) []Lane {
	lanes := make([]Lane, len(columns))
	for i, status := range columns {
		col := Column(issues, status)
		if col == nil {
			col = []domain.Issue{}
		}
		lanes[i] = Lane{Status: status, Issues: col}
	}
	return lanes
}

// Unplaced returns the issues whose status is not one of columns, in their
// current order. Lanes leaves them out.
func Unplaced(issues []domain.Issue, columns domain.Columns) []domain.Issue {
	out := []domain.Issue{}
	for _, issue := range issues {
		if !columns.Contains(issue.Status) {
			out = append(out, issue)
		}
	}
	return out
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
