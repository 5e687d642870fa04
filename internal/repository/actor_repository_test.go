package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actorRows(t *testing.T, id string) *sqlmock.Rows {
	t.Helper()
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "email", "display_name", "title", "first_name", "last_name", "password_hash", "national_id_hash", "national_id_enc", "status", "created_at", "updated_at"}).
		AddRow(id, nil, "Somchai J.", nil, nil, nil, "$argon2id$...", "lookup-hash", []byte{0x01}, "active", now, now)
}

func TestActorRepositoryFindActiveStudentByCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN student_profile sp ON au.id = sp.user_id WHERE sp.student_code = $1 AND au.status = 'active'")).
		WithArgs("STD-650123").
		WillReturnRows(actorRows(t, "u1"))

	actor, err := repo.FindActiveStudentByCode(context.Background(), "STD-650123")
	require.NoError(t, err)
	assert.Equal(t, "u1", actor.ID)
	require.NotNil(t, actor.PasswordHash)
}

func TestActorRepositoryFindActivePersonnelByNationalIDHash(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN personnel_profile pp ON au.id = pp.user_id WHERE au.national_id_hash = $1 AND au.status = 'active'")).
		WithArgs("lookup-hash").
		WillReturnRows(actorRows(t, "u2"))

	actor, err := repo.FindActivePersonnelByNationalIDHash(context.Background(), "lookup-hash")
	require.NoError(t, err)
	assert.Equal(t, "u2", actor.ID)
}

func TestActorRepositoryGuardianLookupUsesAppUserHash(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN guardian_profile gp ON au.id = gp.user_id WHERE au.national_id_hash = $1")).
		WithArgs("lookup-hash").
		WillReturnRows(actorRows(t, "u3"))

	actor, err := repo.FindActiveGuardianByNationalIDHash(context.Background(), "lookup-hash")
	require.NoError(t, err)
	assert.Equal(t, "u3", actor.ID)
}

func TestActorRepositoryFindUnknownPassesThroughNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM app_user")).
		WithArgs("STD-999").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActiveStudentByCode(context.Background(), "STD-999")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestActorRepositoryUpdatePassword(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActorRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE app_user SET password_hash = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("u1", "new-hash", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePassword(context.Background(), "u1", "new-hash", now)
	require.NoError(t, err)
}
