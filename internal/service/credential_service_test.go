package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/crypto"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
)

// testArgon2Params keeps hashing fast in tests. Parameters are embedded in the
// PHC string, so verification is unaffected.
var testArgon2Params = crypto.Argon2Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := crypto.HashPassword(password, testArgon2Params)
	require.NoError(t, err)
	return hash
}

type mockActorFinderRepo struct {
	personnelByHash map[string]*models.Actor
	studentsByCode  map[string]*models.Actor
	guardianByHash  map[string]*models.Actor
	findErr         error
}

func (m *mockActorFinderRepo) FindActivePersonnelByNationalIDHash(ctx context.Context, hash string) (*models.Actor, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if actor, ok := m.personnelByHash[hash]; ok {
		return actor, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockActorFinderRepo) FindActiveStudentByCode(ctx context.Context, code string) (*models.Actor, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if actor, ok := m.studentsByCode[code]; ok {
		return actor, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockActorFinderRepo) FindActiveGuardianByNationalIDHash(ctx context.Context, hash string) (*models.Actor, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if actor, ok := m.guardianByHash[hash]; ok {
		return actor, nil
	}
	return nil, sql.ErrNoRows
}

const testLookupSalt = "default_salt"

func TestCredentialServiceStudentLogin(t *testing.T) {
	hash := mustHash(t, "Passw0rd!")
	repo := &mockActorFinderRepo{
		studentsByCode: map[string]*models.Actor{
			"STD-650123": {ID: "u-student", DisplayName: "Student One", PasswordHash: &hash, Status: models.ActorActive},
		},
	}
	svc := NewCredentialService(repo, testLookupSalt, zap.NewNop())

	actorID, err := svc.Verify(context.Background(), models.ActorStudent, "STD-650123", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, "u-student", actorID)
}

func TestCredentialServicePersonnelLookupByHashedNationalID(t *testing.T) {
	hash := mustHash(t, "teacherpass")
	nationalID := "1234567890123"
	repo := &mockActorFinderRepo{
		personnelByHash: map[string]*models.Actor{
			crypto.HashLookup(nationalID, testLookupSalt): {ID: "u-teacher", PasswordHash: &hash, Status: models.ActorActive},
		},
	}
	svc := NewCredentialService(repo, testLookupSalt, zap.NewNop())

	actorID, err := svc.Verify(context.Background(), models.ActorPersonnel, nationalID, "teacherpass")
	require.NoError(t, err)
	assert.Equal(t, "u-teacher", actorID)
}

// Every failure mode must collapse into the same error so callers cannot
// distinguish unknown accounts from wrong passwords.
func TestCredentialServiceFailureModesIndistinguishable(t *testing.T) {
	hash := mustHash(t, "correct")
	empty := ""
	repo := &mockActorFinderRepo{
		studentsByCode: map[string]*models.Actor{
			"STD-1": {ID: "u1", PasswordHash: &hash, Status: models.ActorActive},
			"STD-2": {ID: "u2", PasswordHash: nil, Status: models.ActorActive},
			"STD-3": {ID: "u3", PasswordHash: &empty, Status: models.ActorActive},
		},
	}
	svc := NewCredentialService(repo, testLookupSalt, zap.NewNop())

	cases := map[string]struct {
		externalID string
		password   string
	}{
		"unknown identifier": {"STD-999", "correct"},
		"wrong password":     {"STD-1", "wrong"},
		"no password set":    {"STD-2", "correct"},
		"empty hash":         {"STD-3", "correct"},
	}

	var messages []string
	for name, tc := range cases {
		_, err := svc.Verify(context.Background(), models.ActorStudent, tc.externalID, tc.password)
		require.Error(t, err, name)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code, name)
		messages = append(messages, appErr.Message)
	}
	for _, msg := range messages {
		assert.Equal(t, messages[0], msg)
	}
}

func TestCredentialServiceUnreadableHashFailsClosed(t *testing.T) {
	bad := "$2a$10$legacybcrypthashnotargon2"
	repo := &mockActorFinderRepo{
		studentsByCode: map[string]*models.Actor{
			"STD-1": {ID: "u1", PasswordHash: &bad, Status: models.ActorActive},
		},
	}
	svc := NewCredentialService(repo, testLookupSalt, zap.NewNop())

	_, err := svc.Verify(context.Background(), models.ActorStudent, "STD-1", "anything")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestCredentialServiceRejectsUnknownActorType(t *testing.T) {
	svc := NewCredentialService(&mockActorFinderRepo{}, testLookupSalt, zap.NewNop())

	_, err := svc.Verify(context.Background(), models.ActorType("alien"), "X-1", "pw")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
