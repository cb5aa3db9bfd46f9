package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/office_hours/internal/apperr"
	"github.com/Freeeeeet/office_hours/internal/model"
)

func TestDirectoryService_Get(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	student, err := env.directory.GetStudent(ctx, studentS1)
	require.NoError(t, err)
	assert.Equal(t, "Sam", student.Name)

	faculty, err := env.directory.GetFaculty(ctx, facultyB)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Bell", faculty.Name)

	_, err = env.directory.GetStudent(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrStudentNotFound)
	_, err = env.directory.GetFaculty(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrFacultyNotFound)
}

func TestDirectoryService_Lists(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	all, err := env.directory.ListFaculty(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Dr. Ada", all[0].Name)

	none, err := env.directory.ListFaculty(ctx, ptr(int64(42)))
	require.NoError(t, err)
	assert.Empty(t, none)

	depts, err := env.directory.ListDepartments(ctx)
	require.NoError(t, err)
	require.Len(t, depts, 1)
	assert.Equal(t, "CSE", depts[0].Code)
}

func TestDirectoryService_Telegram(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	actor, err := env.directory.ResolveTelegramActor(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, StudentActor(studentS1), actor)

	_, err = env.directory.ResolveTelegramActor(ctx, 777)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, env.directory.LinkTelegram(ctx, 1, 777))
	actor, err = env.directory.ResolveTelegramActor(ctx, 777)
	require.NoError(t, err)
	assert.Equal(t, Actor{Role: model.RoleFaculty, ID: facultyA}, actor)

	assert.ErrorIs(t, env.directory.LinkTelegram(ctx, 999, 1), apperr.ErrUserNotFound)
}
