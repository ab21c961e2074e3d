package domain

import "time"

// Project represents a project that contains sprints and issues.
type Project struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Key            string    `json:"key" db:"project_key"`
	Description    *string   `json:"description,omitempty" db:"description"`
	AdminIDs       []int64   `json:"admin_ids" db:"-"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether userID administers the project.
func (p Project) IsAdmin(userID int64) bool {
	for _, id := range p.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
