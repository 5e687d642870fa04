package models

import "time"

// Session is one auth_session row: the long-lived refresh credential behind
// a login. The row is mutated in place on rotation and represents the current
// link in the rotation chain, not history. RotatedAt is a tripwire: once set,
// any presentation of a secret that no longer matches RefreshHash is evidence
// of replaying a superseded credential.
type Session struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	RefreshHash string     `db:"refresh_hash" json:"-"`
	UserAgent   *string    `db:"user_agent" json:"user_agent,omitempty"`
	IP          *string    `db:"ip" json:"ip,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	RotatedAt   *time.Time `db:"rotated_at" json:"rotated_at,omitempty"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt   *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// Active reports whether the session can still participate in refresh flows.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// DeviceMeta captures optional client metadata recorded on the session.
type DeviceMeta struct {
	UserAgent string
	IP        string
}
