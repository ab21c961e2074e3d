package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/sprintboard/internal/domain"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	return db
}

type seed struct {
	user    *domain.User
	project *domain.Project
	sprint  *domain.Sprint
}

func seedBoard(t *testing.T, db *sqlx.DB) seed {
	t.Helper()
	ctx := context.Background()

	user, err := NewUserRepository(db).Upsert(ctx, domain.User{
		Provider: domain.AuthProviderGitHub, ProviderID: "42", Email: "dev@example.com", DisplayName: "Dev",
	})
	require.NoError(t, err)

	project, err := NewProjectRepository(db).Create(ctx, domain.Project{
		OrganizationID: "org-a", Name: "Platform", Key: "PLAT", AdminIDs: []int64{user.ID},
	})
	require.NoError(t, err)

	start := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	sprint, err := NewSprintRepository(db).Create(ctx, domain.Sprint{
		ProjectID: project.ID, Name: "Sprint 1", StartDate: start, EndDate: start.Add(14 * 24 * time.Hour),
		Status: domain.SprintStatusPlanned,
	})
	require.NoError(t, err)

	return seed{user: user, project: project, sprint: sprint}
}

func newIssue(s seed, title string, status domain.IssueStatus) domain.Issue {
	return domain.Issue{
		ProjectID:  s.project.ID,
		SprintID:   &s.sprint.ID,
		Title:      title,
		Status:     status,
		Priority:   domain.IssuePriorityMedium,
		ReporterID: s.user.ID,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, Migrate(context.Background(), db))
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"board.db", "board.db?_foreign_keys=on&_busy_timeout=5000"},
		{"file:board.db?cache=shared", "file:board.db?cache=shared&_foreign_keys=on&_busy_timeout=5000"},
		{"board.db?_foreign_keys=off&_busy_timeout=100", "board.db?_foreign_keys=off&_busy_timeout=100"},
		{"board.db?_fk=1", "board.db?_fk=1&_busy_timeout=5000"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.dsn))
		})
	}
}

func TestProjectDeleteCascadesWithBareDSN(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := seedBoard(t, db)

	var fk int
	require.NoError(t, db.GetContext(ctx, &fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)

	_, err := NewIssueRepository(db).Create(ctx, newIssue(s, "A", domain.IssueStatusTodo))
	require.NoError(t, err)

	require.NoError(t, NewProjectRepository(db).Delete(ctx, s.project.ID))

	for _, table := range []string{"issues", "sprints", "project_admins"} {
		var n int
		require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table))
		assert.Zero(t, n, table)
	}
}

func TestUserUpsertAndMembership(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)

	first, err := users.Upsert(ctx, domain.User{Provider: domain.AuthProviderGoogle, ProviderID: "g1", Email: "a@example.com", DisplayName: "A"})
	require.NoError(t, err)
	again, err := users.Upsert(ctx, domain.User{Provider: domain.AuthProviderGoogle, ProviderID: "g1", Email: "b@example.com", DisplayName: "B"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "b@example.com", again.Email)

	_, err = users.FindMembership(ctx, first.ID, "org-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, users.UpsertMembership(ctx, domain.Membership{UserID: first.ID, OrganizationID: "org-a", Role: domain.RoleMember}))
	require.NoError(t, users.UpsertMembership(ctx, domain.Membership{UserID: first.ID, OrganizationID: "org-a", Role: domain.RoleAdmin}))

	m, err := users.FindMembership(ctx, first.ID, "org-a")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, m.Role)

	_, err = users.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	listed, err := users.ListByIDs(ctx, []int64{first.ID, 9999})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "B", listed[0].DisplayName)

	none, err := users.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestProjectRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := seedBoard(t, db)
	projects := NewProjectRepository(db)

	found, err := projects.FindByID(ctx, s.project.ID)
	require.NoError(t, err)
	assert.Equal(t, "PLAT", found.Key)
	assert.Equal(t, []int64{s.user.ID}, found.AdminIDs)
	assert.True(t, found.IsAdmin(s.user.ID))

	exists, err := projects.ExistsByKey(ctx, "org-a", "PLAT")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = projects.ExistsByKey(ctx, "org-b", "PLAT")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, projects.Delete(ctx, s.project.ID))
	assert.ErrorIs(t, projects.Delete(ctx, s.project.ID), domain.ErrNotFound)

	_, err = NewSprintRepository(db).FindByID(ctx, s.sprint.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "sprints cascade with their project")
}

func TestSprintUpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := seedBoard(t, db)
	sprints := NewSprintRepository(db)

	assert.Equal(t, domain.SprintStatusPlanned, s.sprint.Status)
	assert.True(t, s.sprint.StartDate.Equal(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)))

	updated, err := sprints.UpdateStatus(ctx, s.sprint.ID, domain.SprintStatusPlanned, domain.SprintStatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.SprintStatusActive, updated.Status)

	_, err = sprints.UpdateStatus(ctx, s.sprint.ID, domain.SprintStatusPlanned, domain.SprintStatusActive)
	assert.ErrorIs(t, err, domain.ErrConflict)

	list, err := sprints.ListByProject(ctx, s.project.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.SprintStatusActive, list[0].Status)
}

func TestIssueCreateAssignsIncreasingOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := seedBoard(t, db)
	issues := NewIssueRepository(db)

	var orders []int
	for _, title := range []string{"A", "B", "C"} {
		created, err := issues.Create(ctx, newIssue(s, title, domain.IssueStatusTodo))
		require.NoError(t, err)
		orders = append(orders, created.Order)
	}
	assert.Equal(t, []int{0, 1, 2}, orders)

	done, err := issues.Create(ctx, newIssue(s, "D", domain.IssueStatusDone))
	require.NoError(t, err)
	assert.Equal(t, 0, done.Order)

	backlog := newIssue(s, "E", domain.IssueStatusTodo)
	backlog.SprintID = nil
	created, err := issues.Create(ctx, backlog)
	require.NoError(t, err)
	assert.Equal(t, 3, created.Order, "order is per project column, not per sprint")
	assert.Nil(t, created.SprintID)
}

func TestIssueReorderIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := seedBoard(t, db)
	issues := NewIssueRepository(db)

	a, err := issues.Create(ctx, newIssue(s, "A", domain.IssueStatusTodo))
	require.NoError(t, err)
	b, err := issues.Create(ctx, newIssue(s, "B", domain.IssueStatusTodo))
	require.NoError(t, err)

	err = issues.Reorder(ctx, []domain.IssuePosition{
		{ID: a.ID, Status: domain.IssueStatusDone, Order: 0},
		{ID: 9999, Status: domain.IssueStatusDone, Order: 1},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := issues.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusTodo, stored.Status, "failed batch must not leave partial writes")

	require.NoError(t, issues.Reorder(ctx, []domain.IssuePosition{
		{ID: b.ID, Status: domain.IssueStatusTodo, Order: 0},
		{ID: a.ID, Status: domain.IssueStatusInProgress, Order: 0},
	}))

	list, err := issues.ListBySprint(ctx, s.sprint.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID, "IN_PROGRESS sorts before TODO")
	assert.Equal(t, domain.IssueStatusInProgress, list[0].Status)
	assert.Equal(t, b.ID, list[1].ID)
	assert.Equal(t, 0, list[1].Order)
}

func TestIssueListBySprintOrdering(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := seedBoard(t, db)
	issues := NewIssueRepository(db)

	var ids []int64
	for _, title := range []string{"A", "B", "C"} {
		created, err := issues.Create(ctx, newIssue(s, title, domain.IssueStatusTodo))
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	require.NoError(t, issues.Reorder(ctx, []domain.IssuePosition{
		{ID: ids[1], Status: domain.IssueStatusTodo, Order: 0},
		{ID: ids[2], Status: domain.IssueStatusTodo, Order: 1},
		{ID: ids[0], Status: domain.IssueStatusTodo, Order: 2},
	}))

	list, err := issues.ListBySprint(ctx, s.sprint.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1], ids[2], ids[0]}, []int64{list[0].ID, list[1].ID, list[2].ID})

	byID, err := issues.ListByIDs(ctx, []int64{ids[0], 9999})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, ids[0], byID[0].ID)

	empty, err := issues.ListBySprint(ctx, 9999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestIssueUpdateAndDeleteKeepOrders(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := seedBoard(t, db)
	issues := NewIssueRepository(db)

	a, err := issues.Create(ctx, newIssue(s, "A", domain.IssueStatusTodo))
	require.NoError(t, err)
	b, err := issues.Create(ctx, newIssue(s, "B", domain.IssueStatusTodo))
	require.NoError(t, err)
	c, err := issues.Create(ctx, newIssue(s, "C", domain.IssueStatusTodo))
	require.NoError(t, err)

	updated, err := issues.Update(ctx, c.ID, domain.IssueStatusInReview, domain.IssuePriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusInReview, updated.Status)
	assert.Equal(t, c.Order, updated.Order)

	_, err = issues.Update(ctx, 9999, domain.IssueStatusDone, domain.IssuePriorityLow)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, issues.Delete(ctx, a.ID))
	assert.ErrorIs(t, issues.Delete(ctx, a.ID), domain.ErrNotFound)

	left, err := issues.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, left.Order, "deleting does not compact siblings")
}
