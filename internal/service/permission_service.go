package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
)

type permissionRBACRepository interface {
	GetRoleCodes(ctx context.Context, userID string) ([]string, error)
	GetPermissionCodes(ctx context.Context, userID string) ([]string, error)
	HasPermission(ctx context.Context, userID, code string) (bool, error)
}

type permissionProfileRepository interface {
	FindPersonnelProfile(ctx context.Context, userID string) (*models.PersonnelProfile, error)
	FindStudentProfile(ctx context.Context, userID string) (*models.StudentProfile, error)
	FindGuardianProfile(ctx context.Context, userID string) (*models.GuardianProfile, error)
}

// PermissionService computes permission snapshots for authenticated actors.
type PermissionService struct {
	rbac     permissionRBACRepository
	profiles permissionProfileRepository
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(rbac permissionRBACRepository, profiles permissionProfileRepository) *PermissionService {
	return &PermissionService{rbac: rbac, profiles: profiles}
}

// GetUserPermissions returns the {roles, permissions, context} triple for an
// actor. Computed fresh on login and on every refresh; never persisted.
func (s *PermissionService) GetUserPermissions(ctx context.Context, actorID string) (*models.PermissionSnapshot, error) {
	roles, err := s.rbac.GetRoleCodes(ctx, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roles")
	}

	perms, err := s.rbac.GetPermissionCodes(ctx, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permissions")
	}

	context, err := s.buildContext(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if roles == nil {
		roles = []string{}
	}
	if perms == nil {
		perms = []string{}
	}

	return &models.PermissionSnapshot{
		ActorID:     actorID,
		Roles:       roles,
		Permissions: perms,
		Context:     context,
	}, nil
}

// UserHasPermission checks one permission code without computing a snapshot.
func (s *PermissionService) UserHasPermission(ctx context.Context, actorID, code string) (bool, error) {
	ok, err := s.rbac.HasPermission(ctx, actorID, code)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check permission")
	}
	return ok, nil
}

// buildContext probes actor profiles in fixed priority order: personnel,
// then student, then guardian. The first match determines the context shape;
// at most one context is returned.
func (s *PermissionService) buildContext(ctx context.Context, actorID string) (models.ActorContext, error) {
	personnel, err := s.profiles.FindPersonnelProfile(ctx, actorID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load personnel profile")
	}
	if personnel != nil {
		context := models.ActorContext{"actor_type": string(models.ActorPersonnel)}
		if personnel.Position != nil {
			context["position"] = *personnel.Position
		}
		if personnel.Department != nil {
			context["department"] = *personnel.Department
		}
		return context, nil
	}

	student, err := s.profiles.FindStudentProfile(ctx, actorID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	if student != nil {
		context := models.ActorContext{"actor_type": string(models.ActorStudent)}
		if student.StudentCode != nil {
			context["student_code"] = *student.StudentCode
		}
		if student.Grade != nil {
			context["grade"] = *student.Grade
		}
		if student.Classroom != nil {
			context["classroom"] = *student.Classroom
		}
		return context, nil
	}

	guardian, err := s.profiles.FindGuardianProfile(ctx, actorID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian profile")
	}
	if guardian != nil {
		context := models.ActorContext{"actor_type": string(models.ActorGuardian)}
		if guardian.Relation != nil {
			context["relation"] = *guardian.Relation
		}
		return context, nil
	}

	return nil, nil
}
