package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/config"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/crypto"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
)

type authActorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Actor, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type loginLimiterRepository interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

// IssuedCredentials bundles everything the HTTP layer writes into cookies
// after a successful login or refresh. None of it appears in response bodies.
type IssuedCredentials struct {
	AccessToken       string
	AccessExpiresAt   time.Time
	RefreshCredential string
	CSRFToken         string
}

// AuthService orchestrates the full authentication flows: login, refresh
// rotation, logout, profile reads, and password changes.
type AuthService struct {
	actors      authActorRepository
	credentials *CredentialService
	permissions *PermissionService
	tokens      *TokenService
	sessions    *SessionService
	limiter     loginLimiterRepository
	audit       auditLogRepository
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger

	aesKey     []byte
	limiterCfg config.LimiterConfig
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	actors authActorRepository,
	credentials *CredentialService,
	permissions *PermissionService,
	tokens *TokenService,
	sessions *SessionService,
	limiter loginLimiterRepository,
	audit auditLogRepository,
	metrics *MetricsService,
	logger *zap.Logger,
	cryptoCfg config.CryptoConfig,
	limiterCfg config.LimiterConfig,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		actors:      actors,
		credentials: credentials,
		permissions: permissions,
		tokens:      tokens,
		sessions:    sessions,
		limiter:     limiter,
		audit:       audit,
		metrics:     metrics,
		validator:   validator.New(),
		logger:      logger,
		aesKey:      cryptoCfg.AESKey,
		limiterCfg:  limiterCfg,
	}
}

// Login authenticates an actor against the tenant store and mints the full
// credential set. The tenant has already been resolved from the request host;
// a tenant_id in the body is accepted for compatibility but never overrides
// the host-derived tenant.
func (s *AuthService) Login(ctx context.Context, tenantID string, req *models.LoginRequest) (*models.LoginResponse, *IssuedCredentials, error) {
	if err := s.validateLogin(req); err != nil {
		return nil, nil, err
	}

	limiterKey := fmt.Sprintf("login:%s:%s", req.ActorType, req.ExternalID)
	if s.limiterCfg.Enabled {
		count, err := s.limiter.Incr(ctx, limiterKey, s.limiterCfg.Window)
		if err != nil {
			// Redis trouble must not lock everyone out.
			s.logger.Warn("login limiter unavailable", zap.Error(err))
		} else if count > int64(s.limiterCfg.MaxAttempts) {
			return nil, nil, appErrors.Clone(appErrors.ErrRateLimited, "too many login attempts")
		}
	}

	actorID, err := s.credentials.Verify(ctx, req.ActorType, req.ExternalID, req.Password)
	if err != nil {
		s.metrics.RecordLogin(false)
		return nil, nil, err
	}

	snapshot, err := s.permissions.GetUserPermissions(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}

	creds, err := s.issueCredentials(ctx, actorID, tenantID, snapshot, models.DeviceMeta{UserAgent: req.UserAgent, IP: req.IP})
	if err != nil {
		return nil, nil, err
	}

	if s.limiterCfg.Enabled {
		if err := s.limiter.Reset(ctx, limiterKey); err != nil {
			s.logger.Warn("failed to reset login limiter", zap.Error(err))
		}
	}

	s.metrics.RecordLogin(true)
	s.writeAudit(ctx, actorID, models.AuditActionLogin, req.IP, req.UserAgent)
	s.logger.Info("actor logged in",
		zap.String("actor_id", actorID),
		zap.String("actor_type", string(req.ActorType)),
		zap.String("tenant_id", tenantID),
	)

	return &models.LoginResponse{
		ActorID:     actorID,
		Roles:       snapshot.Roles,
		Permissions: snapshot.Permissions,
		Context:     snapshot.Context,
	}, creds, nil
}

// Refresh rotates the refresh credential and reissues the access token with a
// freshly computed permission snapshot, so grants revoked since login take
// effect here. Reuse detection happens inside the session service; this layer
// only ever reports a generic auth failure to the caller.
func (s *AuthService) Refresh(ctx context.Context, tenantID, refreshCredential string, meta models.DeviceMeta) (*models.LoginResponse, *IssuedCredentials, error) {
	actorID, newCredential, err := s.sessions.VerifyAndRotate(ctx, refreshCredential)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrReuseDetected.Code {
			return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired refresh token")
		}
		return nil, nil, err
	}

	snapshot, err := s.permissions.GetUserPermissions(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}

	accessToken, accessExpiresAt, err := s.tokens.Issue(actorID, tenantID, snapshot)
	if err != nil {
		return nil, nil, err
	}

	csrfToken, err := crypto.GenerateSecureToken()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate csrf token")
	}

	return &models.LoginResponse{
			ActorID:     actorID,
			Roles:       snapshot.Roles,
			Permissions: snapshot.Permissions,
			Context:     snapshot.Context,
		}, &IssuedCredentials{
			AccessToken:       accessToken,
			AccessExpiresAt:   accessExpiresAt,
			RefreshCredential: newCredential,
			CSRFToken:         csrfToken,
		}, nil
}

// Logout revokes every session of the actor. Idempotent; logging out twice is
// not an error.
func (s *AuthService) Logout(ctx context.Context, actorID string) error {
	if err := s.sessions.RevokeActorSessions(ctx, actorID); err != nil {
		return err
	}
	s.writeAudit(ctx, actorID, models.AuditActionLogout, "", "")
	return nil
}

// Me assembles the profile response for the authenticated actor. Roles,
// permissions, and context come straight from the validated access claims;
// only the profile fields hit the store.
func (s *AuthService) Me(ctx context.Context, claims *models.AccessClaims) (*models.MeResponse, error) {
	actor, err := s.actors.FindByID(ctx, claims.ActorID())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "actor no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load actor")
	}

	info := models.ActorInfo{
		ID:          actor.ID,
		Email:       actor.Email,
		DisplayName: actor.DisplayName,
		Title:       actor.Title,
		FirstName:   actor.FirstName,
		LastName:    actor.LastName,
	}

	if len(actor.NationalIDEnc) > 0 {
		plaintext, err := crypto.Decrypt(actor.NationalIDEnc, s.aesKey)
		if err != nil {
			// A ciphertext that fails authentication means tampered or
			// corrupted data; surface it instead of serving a blank field.
			return nil, err
		}
		info.NationalID = maskNationalID(string(plaintext))
	}

	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	perms := claims.Perms
	if perms == nil {
		perms = []string{}
	}

	return &models.MeResponse{
		User:        info,
		Roles:       roles,
		Permissions: perms,
		Context:     claims.Ctx,
	}, nil
}

// ChangePassword verifies the current password, stores the new hash, and
// revokes every session so all devices must log in again.
func (s *AuthService) ChangePassword(ctx context.Context, actorID string, req *models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "validation failed")
	}

	actor, err := s.actors.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "actor no longer exists")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load actor")
	}

	if actor.PasswordHash == nil || *actor.PasswordHash == "" {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}
	ok, err := crypto.VerifyPassword(req.OldPassword, *actor.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", zap.String("actor_id", actorID), zap.Error(err))
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	newHash, err := crypto.HashPassword(req.NewPassword, crypto.DefaultArgon2Params)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.actors.UpdatePassword(ctx, actorID, newHash, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	if err := s.sessions.RevokeActorSessions(ctx, actorID); err != nil {
		return err
	}

	s.writeAudit(ctx, actorID, models.AuditActionPasswordChange, "", "")
	s.logger.Info("password changed, sessions revoked", zap.String("actor_id", actorID))
	return nil
}

func (s *AuthService) issueCredentials(ctx context.Context, actorID, tenantID string, snapshot *models.PermissionSnapshot, meta models.DeviceMeta) (*IssuedCredentials, error) {
	accessToken, accessExpiresAt, err := s.tokens.Issue(actorID, tenantID, snapshot)
	if err != nil {
		return nil, err
	}

	_, refreshCredential, err := s.sessions.CreateSession(ctx, actorID, meta)
	if err != nil {
		return nil, err
	}

	csrfToken, err := crypto.GenerateSecureToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate csrf token")
	}

	return &IssuedCredentials{
		AccessToken:       accessToken,
		AccessExpiresAt:   accessExpiresAt,
		RefreshCredential: refreshCredential,
		CSRFToken:         csrfToken,
	}, nil
}

// validateLogin enforces the request shape: known actor type and exactly one
// authentication method. OTP is part of the wire contract but not supported.
func (s *AuthService) validateLogin(req *models.LoginRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "validation failed")
	}
	if !req.ActorType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "invalid actor type")
	}

	hasPassword := req.Password != ""
	hasOTP := req.OTP != ""
	switch {
	case hasPassword && hasOTP:
		return appErrors.Clone(appErrors.ErrValidation, "provide either password or otp, not both")
	case hasOTP:
		return appErrors.Clone(appErrors.ErrValidation, "otp login is not supported")
	case !hasPassword:
		return appErrors.Clone(appErrors.ErrValidation, "password is required")
	}

	return nil
}

func (s *AuthService) writeAudit(ctx context.Context, actorID, action, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:    &actorID,
		Action:    action,
		Resource:  "auth",
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.audit.Create(ctx, log); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.Error(err))
	}
}

// maskNationalID keeps only the trailing four characters visible.
func maskNationalID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}
