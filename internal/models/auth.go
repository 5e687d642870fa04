package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an actor. ExternalID is
// the national ID for personnel/guardians and the student code for students.
// Exactly one of Password/OTP must be present; OTP login is not implemented.
type LoginRequest struct {
	ActorType  ActorType `json:"actor_type" validate:"required"`
	ExternalID string    `json:"external_id" validate:"required"`
	Password   string    `json:"password"`
	OTP        string    `json:"otp"`
	TenantID   string    `json:"tenant_id"`
	IP         string    `json:"-"`
	UserAgent  string    `json:"-"`
}

// LoginResponse returns the authenticated identity snapshot. Tokens travel
// only in cookies.
type LoginResponse struct {
	ActorID     string       `json:"actor_id"`
	Roles       []string     `json:"roles"`
	Permissions []string     `json:"permissions"`
	Context     ActorContext `json:"context,omitempty"`
}

// ChangePasswordRequest payload for updating the current actor's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ActorInfo describes the authenticated actor in the "me" response.
type ActorInfo struct {
	ID          string  `json:"id"`
	Email       *string `json:"email,omitempty"`
	DisplayName string  `json:"display_name"`
	Title       *string `json:"title,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	NationalID  string  `json:"national_id,omitempty"`
}

// MeResponse carries the profile plus the roles/permissions/context exactly
// as embedded in the validated access token.
type MeResponse struct {
	User        ActorInfo    `json:"user"`
	Roles       []string     `json:"roles"`
	Permissions []string     `json:"permissions"`
	Context     ActorContext `json:"context,omitempty"`
}

// AccessClaims is the JWT payload for access tokens. Claims are authoritative
// for the token's lifetime; no store lookup is needed to authorize a request
// carrying a valid, unexpired token.
type AccessClaims struct {
	TenantID string       `json:"tid,omitempty"`
	Roles    []string     `json:"roles"`
	Perms    []string     `json:"perms"`
	Ctx      ActorContext `json:"ctx,omitempty"`
	jwt.RegisteredClaims
}

// ActorID returns the subject claim.
func (c *AccessClaims) ActorID() string {
	return c.Subject
}
