package domain

import "time"

// SprintStatus represents the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintStatusPlanned   SprintStatus = "PLANNED"
	SprintStatusActive    SprintStatus = "ACTIVE"
	SprintStatusCompleted SprintStatus = "COMPLETED"
)

// Valid reports whether s is one of the known sprint states.
func (s SprintStatus) Valid() bool {
	switch s {
	case SprintStatusPlanned, SprintStatusActive, SprintStatusCompleted:
		return true
	}
	return false
}

// Sprint is a time-boxed unit of work within a project.
type Sprint struct {
	ID        int64        `json:"id" db:"id"`
	ProjectID int64        `json:"project_id" db:"project_id"`
	Name      string       `json:"name" db:"name"`
	StartDate time.Time    `json:"start_date" db:"start_date"`
	EndDate   time.Time    `json:"end_date" db:"end_date"`
	Status    SprintStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// InWindow reports whether now lies within [StartDate, EndDate], both ends inclusive.
func (s Sprint) InWindow(now time.Time) bool {
	return !now.Before(s.StartDate) && !now.After(s.EndDate)
}

// CanStart reports whether the sprint may move to ACTIVE at now.
func (s Sprint) CanStart(now time.Time) bool {
	return s.Status == SprintStatusPlanned && s.InWindow(now)
}

// CanComplete reports whether the sprint may move to COMPLETED.
func (s Sprint) CanComplete() bool {
	return s.Status == SprintStatusActive
}

// Overdue reports an ACTIVE sprint whose end date has passed.
// Overdue sprints stay ACTIVE until an admin completes them.
func (s Sprint) Overdue(now time.Time) bool {
	return s.Status == SprintStatusActive && now.After(s.EndDate)
}

// CheckTransition validates moving the sprint to target at now.
func (s Sprint) CheckTransition(target SprintStatus, now time.Time) error {
	switch {
	case target == s.Status:
		return &TransitionError{From: s.Status, To: target, Message: "sprint is already " + string(target)}
	case target == SprintStatusActive:
		if s.Status != SprintStatusPlanned {
			return &TransitionError{From: s.Status, To: target, Message: "can only start a planned sprint"}
		}
		if !s.InWindow(now) {
			return &TransitionError{From: s.Status, To: target, Message: "cannot start outside date range"}
		}
		return nil
	case target == SprintStatusCompleted:
		if s.Status != SprintStatusActive {
			return &TransitionError{From: s.Status, To: target, Message: "can only complete an active sprint"}
		}
		return nil
	default:
		return &TransitionError{From: s.Status, To: target, Message: "unsupported target status " + string(target)}
	}
}

// SprintView decorates a sprint with state derived at read time.
type SprintView struct {
	Sprint
	Overdue     bool `json:"overdue"`
	CanStart    bool `json:"can_start"`
	CanComplete bool `json:"can_complete"`
}

// View computes the read-time flags for the sprint.
func (s Sprint) View(now time.Time) SprintView {
	return SprintView{
		Sprint:      s,
		Overdue:     s.Overdue(now),
		CanStart:    s.CanStart(now),
		CanComplete: s.CanComplete(),
	}
}
