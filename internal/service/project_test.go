package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/sprintboard/internal/domain"
)

func TestProjectCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	project, err := f.projectSvc.Create(ctx, admin, CreateProjectInput{Name: " Mobile ", Key: "mob"})
	require.NoError(t, err)
	assert.Equal(t, "MOB", project.Key)
	assert.Equal(t, "Mobile", project.Name)
	assert.Equal(t, orgA, project.OrganizationID)
	assert.Equal(t, []int64{adminID}, project.AdminIDs)

	_, err = f.projectSvc.Create(ctx, admin, CreateProjectInput{Name: "Again", Key: "MOB"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.projectSvc.Create(ctx, outsider, CreateProjectInput{Name: "Same key elsewhere", Key: "MOB"})
	assert.NoError(t, err, "keys are unique per organization")

	_, err = f.projectSvc.Create(ctx, member, CreateProjectInput{Name: "Nope", Key: "NOPE"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestProjectGetIncludesSprintViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	detail, err := f.projectSvc.Get(ctx, member, projectID)
	require.NoError(t, err)
	assert.Equal(t, "PLAT", detail.Key)
	require.Len(t, detail.Sprints, 1)
	assert.True(t, detail.Sprints[0].CanComplete)
	assert.False(t, detail.Sprints[0].Overdue)

	_, err = f.projectSvc.Get(ctx, outsider, projectID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.projectSvc.Get(ctx, domain.Principal{UserID: memberID}, projectID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestProjectDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	assert.ErrorIs(t, f.projectSvc.Delete(ctx, member, projectID), domain.ErrForbidden)
	assert.ErrorIs(t, f.projectSvc.Delete(ctx, outsider, projectID), domain.ErrNotFound)

	require.NoError(t, f.projectSvc.Delete(ctx, admin, projectID))
	_, err := f.projects.FindByID(ctx, projectID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
