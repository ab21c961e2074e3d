package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sumire/sprintboard/internal/domain"
)

type memUsers struct {
	mu          sync.Mutex
	users       map[int64]domain.User
	memberships map[string]domain.Membership
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[int64]domain.User{}, memberships: map[string]domain.Membership{}}
}

func membershipKey(userID int64, orgID string) string {
	return fmt.Sprintf("%d/%s", userID, orgID)
}

func (m *memUsers) add(u domain.User, orgID string, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	if orgID != "" {
		m.memberships[membershipKey(u.ID, orgID)] = domain.Membership{UserID: u.ID, OrganizationID: orgID, Role: role}
	}
}

func (m *memUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) ListByIDs(_ context.Context, ids []int64) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) Upsert(_ context.Context, user domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Provider == user.Provider && u.ProviderID == user.ProviderID {
			user.ID = id
			m.users[id] = user
			return &user, nil
		}
	}
	user.ID = int64(len(m.users) + 1000)
	m.users[user.ID] = user
	return &user, nil
}

func (m *memUsers) FindMembership(_ context.Context, userID int64, orgID string) (*domain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.memberships[membershipKey(userID, orgID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &ms, nil
}

func (m *memUsers) UpsertMembership(_ context.Context, ms domain.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[ms.UserID]; !ok {
		return fmt.Errorf("user %d: %w", ms.UserID, domain.ErrNotFound)
	}
	m.memberships[membershipKey(ms.UserID, ms.OrganizationID)] = ms
	return nil
}

type memProjects struct {
	mu       sync.Mutex
	nextID   int64
	projects map[int64]domain.Project
}

func newMemProjects() *memProjects {
	return &memProjects{nextID: 100, projects: map[int64]domain.Project{}}
}

func (m *memProjects) Create(_ context.Context, p domain.Project) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		m.nextID++
		p.ID = m.nextID
	}
	m.projects[p.ID] = p
	return &p, nil
}

func (m *memProjects) FindByID(_ context.Context, id int64) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memProjects) ExistsByKey(_ context.Context, orgID, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.OrganizationID == orgID && p.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProjects) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

type memSprints struct {
	mu      sync.Mutex
	nextID  int64
	sprints map[int64]domain.Sprint
}

func newMemSprints() *memSprints {
	return &memSprints{nextID: 200, sprints: map[int64]domain.Sprint{}}
}

func (m *memSprints) Create(_ context.Context, s domain.Sprint) (*domain.Sprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		m.nextID++
		s.ID = m.nextID
	}
	m.sprints[s.ID] = s
	return &s, nil
}

func (m *memSprints) FindByID(_ context.Context, id int64) (*domain.Sprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sprints[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *memSprints) ListByProject(_ context.Context, projectID int64) ([]domain.Sprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Sprint
	for _, s := range m.sprints {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memSprints) UpdateStatus(_ context.Context, id int64, from, to domain.SprintStatus) (*domain.Sprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sprints[id]
	if !ok || s.Status != from {
		return nil, domain.ErrConflict
	}
	s.Status = to
	m.sprints[id] = s
	return &s, nil
}

type memIssues struct {
	mu     sync.Mutex
	nextID int64
	issues map[int64]domain.Issue
}

func newMemIssues() *memIssues {
	return &memIssues{nextID: 300, issues: map[int64]domain.Issue{}}
}

func (m *memIssues) Create(_ context.Context, issue domain.Issue) (*domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, found := 0, false
	for _, other := range m.issues {
		if other.ProjectID == issue.ProjectID && other.Status == issue.Status && (!found || other.Order > last) {
			last, found = other.Order, true
		}
	}
	m.nextID++
	issue.ID = m.nextID
	issue.Order = domain.NextOrder(last, found)
	m.issues[issue.ID] = issue
	return &issue, nil
}

func (m *memIssues) FindByID(_ context.Context, id int64) (*domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.issues[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &issue, nil
}

func (m *memIssues) ListBySprint(_ context.Context, sprintID int64) ([]domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Issue{}
	for _, issue := range m.issues {
		if issue.SprintID != nil && *issue.SprintID == sprintID {
			out = append(out, issue)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memIssues) ListByIDs(_ context.Context, ids []int64) ([]domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Issue
	for _, id := range ids {
		if issue, ok := m.issues[id]; ok {
			out = append(out, issue)
		}
	}
	return out, nil
}

func (m *memIssues) Update(_ context.Context, id int64, status domain.IssueStatus, priority domain.IssuePriority) (*domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.issues[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	issue.Status = status
	issue.Priority = priority
	m.issues[id] = issue
	return &issue, nil
}

func (m *memIssues) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issues[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.issues, id)
	return nil
}

func (m *memIssues) Reorder(_ context.Context, positions []domain.IssuePosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pos := range positions {
		if _, ok := m.issues[pos.ID]; !ok {
			return fmt.Errorf("issue %d: %w", pos.ID, domain.ErrNotFound)
		}
	}
	for _, pos := range positions {
		issue := m.issues[pos.ID]
		issue.Status = pos.Status
		issue.Order = pos.Order
		m.issues[pos.ID] = issue
	}
	return nil
}

const (
	orgA = "org-a"
	orgB = "org-b"

	adminID    int64 = 1
	memberID   int64 = 2
	outsiderID int64 = 3

	projectID int64 = 10
	sprintID  int64 = 20
)

var (
	fixedNow    = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	sprintStart = time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	sprintEnd   = time.Date(2026, 5, 17, 0, 0, 0, 0, time.UTC)

	admin    = domain.Principal{UserID: adminID, OrganizationID: orgA, Role: domain.RoleAdmin}
	member   = domain.Principal{UserID: memberID, OrganizationID: orgA, Role: domain.RoleMember}
	outsider = domain.Principal{UserID: outsiderID, OrganizationID: orgB, Role: domain.RoleAdmin}
)

type fixture struct {
	users    *memUsers
	projects *memProjects
	sprints  *memSprints
	issues   *memIssues

	projectSvc *ProjectService
	sprintSvc  *SprintService
	issueSvc   *IssueService
}

// newFixture seeds one organization admin, one member, a user of another
// organization, a project administered by the admin and an ACTIVE sprint.
func newFixture() *fixture {
	f := &fixture{
		users:    newMemUsers(),
		projects: newMemProjects(),
		sprints:  newMemSprints(),
		issues:   newMemIssues(),
	}
	f.users.add(domain.User{ID: adminID, Email: "admin@example.com"}, orgA, domain.RoleAdmin)
	f.users.add(domain.User{ID: memberID, Email: "member@example.com"}, orgA, domain.RoleMember)
	f.users.add(domain.User{ID: outsiderID, Email: "outsider@example.com"}, orgB, domain.RoleAdmin)

	f.projects.projects[projectID] = domain.Project{
		ID: projectID, OrganizationID: orgA, Name: "Platform", Key: "PLAT", AdminIDs: []int64{adminID},
	}
	f.sprints.sprints[sprintID] = domain.Sprint{
		ID: sprintID, ProjectID: projectID, Name: "Sprint 1",
		StartDate: sprintStart, EndDate: sprintEnd, Status: domain.SprintStatusActive,
	}

	clock := func() time.Time { return fixedNow }

	f.projectSvc = NewProjectService(f.projects, f.sprints)
	f.projectSvc.now = clock
	f.sprintSvc = NewSprintService(f.sprints, f.projects)
	f.sprintSvc.now = clock
	f.issueSvc = NewIssueService(f.issues, f.sprints, f.projects, f.users, nil)
	return f
}

func (f *fixture) addSprint(status domain.SprintStatus, start, end time.Time) int64 {
	s, _ := f.sprints.Create(context.Background(), domain.Sprint{
		ProjectID: projectID, Name: "extra", StartDate: start, EndDate: end, Status: status,
	})
	return s.ID
}

func ptr[T any](v T) *T { return &v }
