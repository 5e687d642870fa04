package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRBACRepositoryGetRoleCodes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	rows := sqlmock.NewRows([]string{"code"}).AddRow("student").AddRow("library_member")
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_role ur JOIN role ro ON ur.role_id = ro.id WHERE ur.user_id = $1")).
		WithArgs("u1").
		WillReturnRows(rows)

	codes, err := repo.GetRoleCodes(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"student", "library_member"}, codes)
}

func TestRBACRepositoryGetPermissionCodesDeduplicated(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	rows := sqlmock.NewRows([]string{"code"}).AddRow("attend:read").AddRow("class:read").AddRow("grade:read")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT p.code FROM user_role ur JOIN role_permission rp")).
		WithArgs("u1").
		WillReturnRows(rows)

	codes, err := repo.GetPermissionCodes(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"attend:read", "class:read", "grade:read"}, codes)
}

func TestRBACRepositoryHasPermission(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRBACRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("u1", "grade:write").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.HasPermission(context.Background(), "u1", "grade:write")
	require.NoError(t, err)
	assert.False(t, ok)
}
