package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// RBACRepository answers role and permission queries for actors.
type RBACRepository struct {
	db *sqlx.DB
}

// NewRBACRepository creates a new instance of RBACRepository.
func NewRBACRepository(db *sqlx.DB) *RBACRepository {
	return &RBACRepository{db: db}
}

// GetRoleCodes returns the role codes assigned to an actor.
func (r *RBACRepository) GetRoleCodes(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT ro.code FROM user_role ur JOIN role ro ON ur.role_id = ro.id WHERE ur.user_id = $1 ORDER BY ro.code`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, userID); err != nil {
		return nil, fmt.Errorf("get role codes: %w", err)
	}
	return codes, nil
}

// GetPermissionCodes returns the deduplicated union of permission codes
// reachable from the actor's roles.
func (r *RBACRepository) GetPermissionCodes(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT DISTINCT p.code FROM user_role ur JOIN role_permission rp ON ur.role_id = rp.role_id JOIN permission p ON rp.permission_id = p.id WHERE ur.user_id = $1 ORDER BY p.code`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, userID); err != nil {
		return nil, fmt.Errorf("get permission codes: %w", err)
	}
	return codes, nil
}

// HasPermission checks one permission code directly against the role join,
// without computing a full snapshot.
func (r *RBACRepository) HasPermission(ctx context.Context, userID, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_role ur JOIN role_permission rp ON ur.role_id = rp.role_id JOIN permission p ON rp.permission_id = p.id WHERE ur.user_id = $1 AND p.code = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, code); err != nil {
		return false, fmt.Errorf("has permission: %w", err)
	}
	return exists, nil
}
