package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
)

const actorColumns = `au.id, au.email, au.display_name, au.title, au.first_name, au.last_name, au.password_hash, au.national_id_hash, au.national_id_enc, au.status, au.created_at, au.updated_at`

// ActorRepository provides database access for actors and their type-specific
// profiles. Each credential-lookup arm joins exactly one profile table; the
// closed dispatch over actor types lives in the credential service.
type ActorRepository struct {
	db *sqlx.DB
}

// NewActorRepository creates a new instance of ActorRepository.
func NewActorRepository(db *sqlx.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

// FindActivePersonnelByNationalIDHash resolves an active staff member through
// the hashed national ID.
func (r *ActorRepository) FindActivePersonnelByNationalIDHash(ctx context.Context, hash string) (*models.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM app_user au JOIN personnel_profile pp ON au.id = pp.user_id WHERE au.national_id_hash = $1 AND au.status = 'active' LIMIT 1`, actorColumns)
	var actor models.Actor
	if err := r.db.GetContext(ctx, &actor, query, hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find personnel by national id hash: %w", err)
	}
	return &actor, nil
}

// FindActiveStudentByCode resolves an active student through the plain
// student code.
func (r *ActorRepository) FindActiveStudentByCode(ctx context.Context, code string) (*models.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM app_user au JOIN student_profile sp ON au.id = sp.user_id WHERE sp.student_code = $1 AND au.status = 'active' LIMIT 1`, actorColumns)
	var actor models.Actor
	if err := r.db.GetContext(ctx, &actor, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by code: %w", err)
	}
	return &actor, nil
}

// FindActiveGuardianByNationalIDHash resolves an active guardian through the
// hashed national ID.
func (r *ActorRepository) FindActiveGuardianByNationalIDHash(ctx context.Context, hash string) (*models.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM app_user au JOIN guardian_profile gp ON au.id = gp.user_id WHERE au.national_id_hash = $1 AND au.status = 'active' LIMIT 1`, actorColumns)
	var actor models.Actor
	if err := r.db.GetContext(ctx, &actor, query, hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guardian by national id hash: %w", err)
	}
	return &actor, nil
}

// FindByID returns an actor by identifier.
func (r *ActorRepository) FindByID(ctx context.Context, id string) (*models.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM app_user au WHERE au.id = $1 LIMIT 1`, actorColumns)
	var actor models.Actor
	if err := r.db.GetContext(ctx, &actor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find actor by id: %w", err)
	}
	return &actor, nil
}

// UpdatePassword replaces the stored password hash.
func (r *ActorRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE app_user SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// FindPersonnelProfile returns the personnel profile for an actor, or
// sql.ErrNoRows when the actor has none.
func (r *ActorRepository) FindPersonnelProfile(ctx context.Context, userID string) (*models.PersonnelProfile, error) {
	const query = `SELECT id, user_id, position, department, created_at FROM personnel_profile WHERE user_id = $1 LIMIT 1`
	var profile models.PersonnelProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find personnel profile: %w", err)
	}
	return &profile, nil
}

// FindStudentProfile returns the student profile for an actor, or
// sql.ErrNoRows when the actor has none.
func (r *ActorRepository) FindStudentProfile(ctx context.Context, userID string) (*models.StudentProfile, error) {
	const query = `SELECT id, user_id, student_code, grade, classroom, created_at FROM student_profile WHERE user_id = $1 LIMIT 1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student profile: %w", err)
	}
	return &profile, nil
}

// FindGuardianProfile returns the guardian profile for an actor, or
// sql.ErrNoRows when the actor has none.
func (r *ActorRepository) FindGuardianProfile(ctx context.Context, userID string) (*models.GuardianProfile, error) {
	const query = `SELECT id, user_id, phone_number, relation, created_at FROM guardian_profile WHERE user_id = $1 LIMIT 1`
	var profile models.GuardianProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guardian profile: %w", err)
	}
	return &profile, nil
}
