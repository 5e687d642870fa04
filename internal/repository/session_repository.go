package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
)

const sessionColumns = `id, user_id, refresh_hash, user_agent, ip, created_at, rotated_at, expires_at, revoked_at`

// SessionRepository persists refresh sessions (auth_session rows).
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO auth_session (id, user_id, refresh_hash, user_agent, ip, created_at, expires_at) VALUES (:id, :user_id, :refresh_hash, :user_agent, :ip, :created_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindActiveByID returns the session only when it is unrevoked and unexpired.
func (r *SessionRepository) FindActiveByID(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM auth_session WHERE id = $1 AND revoked_at IS NULL AND expires_at > $2 LIMIT 1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return &session, nil
}

// Rotate replaces the stored hash and arms the tripwire in a single
// conditional update. The guard on the previously read hash makes the
// read-decide-write transition atomic per row: when two rotations race,
// exactly one matches the old hash and wins. Returns false when the guard
// did not match (the caller lost the race or the session is gone).
func (r *SessionRepository) Rotate(ctx context.Context, sessionID, oldHash, newHash string, rotatedAt time.Time) (bool, error) {
	const query = `UPDATE auth_session SET refresh_hash = $3, rotated_at = $4 WHERE id = $1 AND refresh_hash = $2 AND revoked_at IS NULL AND expires_at > $4`
	res, err := r.db.ExecContext(ctx, query, sessionID, oldHash, newHash, rotatedAt)
	if err != nil {
		return false, fmt.Errorf("rotate session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotate session rows affected: %w", err)
	}
	return affected == 1, nil
}

// Revoke marks a single session revoked. Idempotent: already-revoked rows
// keep their original revocation timestamp.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string, revokedAt time.Time) error {
	const query = `UPDATE auth_session SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, sessionID, revokedAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeUserSessions revokes every unrevoked session of an actor.
func (r *SessionRepository) RevokeUserSessions(ctx context.Context, userID string, revokedAt time.Time) error {
	const query = `UPDATE auth_session SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, userID, revokedAt); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past expiry or revoked for longer than the
// retention window, returning the number of rows removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	const query = `DELETE FROM auth_session WHERE expires_at < $1 OR revoked_at < $2`
	res, err := r.db.ExecContext(ctx, query, now, now.Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired rows affected: %w", err)
	}
	return deleted, nil
}
