package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/crypto"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
)

type credentialActorRepository interface {
	FindActivePersonnelByNationalIDHash(ctx context.Context, hash string) (*models.Actor, error)
	FindActiveStudentByCode(ctx context.Context, code string) (*models.Actor, error)
	FindActiveGuardianByNationalIDHash(ctx context.Context, hash string) (*models.Actor, error)
}

// CredentialService verifies presented secrets against stored password
// hashes through the actor-type-specific lookup path. Every failure mode
// (unknown identifier, inactive account, no password configured, hash
// mismatch) collapses into the same INVALID_CREDENTIALS outcome so callers
// cannot enumerate accounts.
type CredentialService struct {
	repo       credentialActorRepository
	lookupSalt string
	logger     *zap.Logger
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(repo credentialActorRepository, lookupSalt string, logger *zap.Logger) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{repo: repo, lookupSalt: lookupSalt, logger: logger}
}

// Verify authenticates the actor and returns its internal identifier.
func (s *CredentialService) Verify(ctx context.Context, actorType models.ActorType, externalID, password string) (string, error) {
	var (
		actor *models.Actor
		err   error
	)

	switch actorType {
	case models.ActorPersonnel:
		actor, err = s.repo.FindActivePersonnelByNationalIDHash(ctx, crypto.HashLookup(externalID, s.lookupSalt))
	case models.ActorStudent:
		actor, err = s.repo.FindActiveStudentByCode(ctx, externalID)
	case models.ActorGuardian:
		actor, err = s.repo.FindActiveGuardianByNationalIDHash(ctx, crypto.HashLookup(externalID, s.lookupSalt))
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid actor type")
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve actor")
	}

	if actor.PasswordHash == nil || *actor.PasswordHash == "" {
		return "", appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	ok, err := crypto.VerifyPassword(password, *actor.PasswordHash)
	if err != nil {
		// A hash we cannot parse is an operational problem, but the caller
		// still only learns that the credentials did not work.
		s.logger.Warn("stored password hash unreadable", zap.String("actor_id", actor.ID), zap.Error(err))
		return "", appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	return actor.ID, nil
}
