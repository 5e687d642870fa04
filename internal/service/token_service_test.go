package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/config"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
)

func testTokenService() *TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:   "test_secret_with_enough_entropy_for_hs256",
		Issuer:   "schoolorbit-auth",
		Audience: []string{"schoolorbit"},
	})
}

func testSnapshot() *models.PermissionSnapshot {
	return &models.PermissionSnapshot{
		ActorID:     "u1",
		Roles:       []string{"student"},
		Permissions: []string{"attend:read", "class:read", "grade:read"},
		Context:     models.ActorContext{"actor_type": "student", "grade": "M4"},
	}
}

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := testTokenService()

	token, expiresAt, err := svc.Issue("u1", "tenant-a", testSnapshot())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(AccessTokenTTL), expiresAt, 5*time.Second)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.ActorID())
	assert.Equal(t, "tenant-a", claims.TenantID)
	assert.Equal(t, []string{"student"}, claims.Roles)
	assert.Equal(t, []string{"attend:read", "class:read", "grade:read"}, claims.Perms)
	assert.Equal(t, "student", claims.Ctx["actor_type"])
	assert.Equal(t, "schoolorbit-auth", claims.Issuer)
}

func TestTokenServiceRejectsWrongSecret(t *testing.T) {
	token, _, err := testTokenService().Issue("u1", "tenant-a", testSnapshot())
	require.NoError(t, err)

	other := NewTokenService(config.JWTConfig{Secret: "a_completely_different_signing_secret", Issuer: "schoolorbit-auth"})
	_, err = other.Verify(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRejectsGarbage(t *testing.T) {
	svc := testTokenService()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Verify(token)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
	}
}

func TestTokenServiceRejectsTampering(t *testing.T) {
	svc := testTokenService()
	token, _, err := svc.Issue("u1", "tenant-a", testSnapshot())
	require.NoError(t, err)

	tampered := token[:len(token)-4] + "AAAA"
	_, err = svc.Verify(tampered)
	require.Error(t, err)
}
