package models

import "time"

// Role is an assignable RBAC role.
type Role struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Permission is a grantable permission code, e.g. "class:read".
type Permission struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ActorContext is the actor-type-specific context payload embedded in access
// tokens. It is opaque to the auth layer beyond its actor_type tag.
type ActorContext map[string]interface{}

// PermissionSnapshot is the computed {roles, permissions, context} triple for
// an actor at a point in time. It only exists to build access claims and is
// never persisted.
type PermissionSnapshot struct {
	ActorID     string       `json:"actor_id"`
	Roles       []string     `json:"roles"`
	Permissions []string     `json:"permissions"`
	Context     ActorContext `json:"context,omitempty"`
}
