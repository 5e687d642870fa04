package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/config"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
)

// AccessTokenTTL is the fixed access token lifetime. The token service owns
// expiry policy; callers may not override it.
const AccessTokenTTL = 15 * time.Minute

// TokenService issues and verifies the stateless signed access credential.
type TokenService struct {
	secret   []byte
	issuer   string
	audience []string
}

// NewTokenService constructs a TokenService from signing configuration.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Issue signs an access token embedding the actor's permission snapshot.
// Returns the compact token and its expiry.
func (s *TokenService) Issue(actorID, tenantID string, snapshot *models.PermissionSnapshot) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(AccessTokenTTL)

	claims := &models.AccessClaims{
		TenantID: tenantID,
		Roles:    snapshot.Roles,
		Perms:    snapshot.Permissions,
		Ctx:      snapshot.Context,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   actorID,
			Audience:  jwt.ClaimStrings(s.audience),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}
	return signed, expiresAt, nil
}

// Verify validates signature and expiry in one step. Expiry is a hard
// boundary: no grace window.
func (s *TokenService) Verify(tokenString string) (*models.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.AccessClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
