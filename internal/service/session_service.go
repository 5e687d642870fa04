package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/config"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/crypto"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindActiveByID(ctx context.Context, id string, now time.Time) (*models.Session, error)
	Rotate(ctx context.Context, sessionID, oldHash, newHash string, rotatedAt time.Time) (bool, error)
	Revoke(ctx context.Context, sessionID string, revokedAt time.Time) error
	RevokeUserSessions(ctx context.Context, userID string, revokedAt time.Time) error
	DeleteExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

type auditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// SessionService owns the refresh session state machine: Active → Rotated →
// Expired/Revoked. Clients hold a composite credential "<sessionID>.<secret>"
// so verification is an indexed lookup against a single row rather than a
// scan over every active session.
type SessionService struct {
	repo    sessionRepository
	audit   auditLogRepository
	metrics *MetricsService
	logger  *zap.Logger

	refreshTTL       time.Duration
	revokedRetention time.Duration
	hashParams       crypto.Argon2Params
}

// NewSessionService constructs a SessionService.
func NewSessionService(repo sessionRepository, audit auditLogRepository, metrics *MetricsService, logger *zap.Logger, cfg config.SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 14 * 24 * time.Hour
	}
	retention := cfg.RevokedRetention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &SessionService{
		repo:             repo,
		audit:            audit,
		metrics:          metrics,
		logger:           logger,
		refreshTTL:       refreshTTL,
		revokedRetention: retention,
		hashParams:       crypto.DefaultArgon2Params,
	}
}

// CreateSession generates a fresh refresh secret, stores only its hash, and
// returns the session ID plus the composite credential handed to the client.
func (s *SessionService) CreateSession(ctx context.Context, actorID string, meta models.DeviceMeta) (string, string, error) {
	secret, err := crypto.GenerateSecureToken()
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate refresh secret")
	}

	hash, err := crypto.HashPassword(secret, s.hashParams)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash refresh secret")
	}

	session := &models.Session{
		ID:          uuid.NewString(),
		UserID:      actorID,
		RefreshHash: hash,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(s.refreshTTL),
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}
	if meta.IP != "" {
		session.IP = &meta.IP
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	return session.ID, session.ID + "." + secret, nil
}

// VerifyAndRotate exchanges a refresh credential for the next link in the
// rotation chain.
//
// Outcomes:
//   - credential matches the current hash: rotate in place (new hash,
//     tripwire timestamp) and return the new credential. The rotation is a
//     single conditional update; a concurrent rotator that loses the race
//     fails as invalid, not as reuse.
//   - credential names a live session but carries a superseded secret while
//     the tripwire is armed: credential theft. Every session of the owning
//     actor is revoked and the call fails with ErrReuseDetected.
//   - anything else: invalid or expired.
func (s *SessionService) VerifyAndRotate(ctx context.Context, credential string) (string, string, error) {
	sessionID, secret, ok := splitCredential(credential)
	if !ok {
		return "", "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired refresh token")
	}

	now := time.Now().UTC()
	session, err := s.repo.FindActiveByID(ctx, sessionID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired refresh token")
		}
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	match, err := crypto.VerifyPassword(secret, session.RefreshHash)
	if err != nil {
		s.logger.Warn("stored refresh hash unreadable", zap.String("session_id", session.ID), zap.Error(err))
		return "", "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired refresh token")
	}

	if !match {
		if session.RotatedAt != nil {
			return "", "", s.handleReuse(ctx, session, now)
		}
		return "", "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired refresh token")
	}

	newSecret, err := crypto.GenerateSecureToken()
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate refresh secret")
	}
	newHash, err := crypto.HashPassword(newSecret, s.hashParams)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash refresh secret")
	}

	rotated, err := s.repo.Rotate(ctx, session.ID, session.RefreshHash, newHash, now)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate session")
	}
	if !rotated {
		// Lost the rotation race (or the session was revoked underneath us).
		// The winner holds the only valid secret now.
		return "", "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired refresh token")
	}

	s.metrics.RecordRotation()
	s.writeAudit(ctx, session.UserID, models.AuditActionRefreshRotate, session.ID, []byte(`{"refresh":"rotated"}`))

	return session.UserID, session.ID + "." + newSecret, nil
}

// handleReuse revokes the whole session family of the owning actor. The
// caller surfaces a generic auth failure; the cascade happens regardless.
func (s *SessionService) handleReuse(ctx context.Context, session *models.Session, now time.Time) error {
	if err := s.repo.RevokeUserSessions(ctx, session.UserID, now); err != nil {
		// The tripwire fired but the cascade failed; escalate instead of
		// pretending the credential was merely invalid.
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke sessions after reuse")
	}

	s.metrics.RecordReuseDetected()
	s.logger.Warn("refresh token reuse detected, session family revoked",
		zap.String("session_id", session.ID),
		zap.String("actor_id", session.UserID),
	)
	s.writeAudit(ctx, session.UserID, models.AuditActionReuseRevoke, session.ID, []byte(`{"reason":"refresh_reuse"}`))

	return appErrors.Clone(appErrors.ErrReuseDetected, "")
}

// RevokeSession revokes one session. Idempotent.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string) error {
	if err := s.repo.Revoke(ctx, sessionID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke session")
	}
	s.metrics.RecordRevocation()
	return nil
}

// RevokeActorSessions revokes every session of an actor. Idempotent.
func (s *SessionService) RevokeActorSessions(ctx context.Context, actorID string) error {
	if err := s.repo.RevokeUserSessions(ctx, actorID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke sessions")
	}
	s.metrics.RecordRevocation()
	return nil
}

// CleanupExpired removes sessions past expiry or revoked beyond the
// retention window. Storage hygiene only; never safety-critical.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, time.Now().UTC(), s.revokedRetention)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clean up sessions")
	}
	s.metrics.RecordCleanup(deleted)
	return deleted, nil
}

func (s *SessionService) writeAudit(ctx context.Context, actorID, action, sessionID string, payload []byte) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "auth_session",
		ResourceID: &sessionID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record session audit log", zap.Error(err))
	}
}

// splitCredential parses "<sessionID>.<secret>". The session ID must be a
// UUID; anything else is rejected before touching the store.
func splitCredential(credential string) (string, string, bool) {
	sessionID, secret, found := strings.Cut(credential, ".")
	if !found || secret == "" {
		return "", "", false
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", "", false
	}
	return sessionID, secret, true
}
