package models

import "time"

// ActorType tags the three principal kinds the platform authenticates. The
// set is closed: credential lookup dispatches over it exhaustively.
type ActorType string

const (
	ActorPersonnel ActorType = "personnel"
	ActorStudent   ActorType = "student"
	ActorGuardian  ActorType = "guardian"
)

// Valid reports whether the tag is one of the closed set.
func (t ActorType) Valid() bool {
	switch t {
	case ActorPersonnel, ActorStudent, ActorGuardian:
		return true
	}
	return false
}

// ActorStatus mirrors the user_status enum.
type ActorStatus string

const (
	ActorActive    ActorStatus = "active"
	ActorInactive  ActorStatus = "inactive"
	ActorSuspended ActorStatus = "suspended"
)

// Actor represents an app_user row. National IDs are never stored in
// cleartext: the hash column supports equality lookup and the enc column
// holds the AEAD blob for display.
type Actor struct {
	ID             string      `db:"id" json:"id"`
	Email          *string     `db:"email" json:"email,omitempty"`
	DisplayName    string      `db:"display_name" json:"display_name"`
	Title          *string     `db:"title" json:"title,omitempty"`
	FirstName      *string     `db:"first_name" json:"first_name,omitempty"`
	LastName       *string     `db:"last_name" json:"last_name,omitempty"`
	PasswordHash   *string     `db:"password_hash" json:"-"`
	NationalIDHash string      `db:"national_id_hash" json:"-"`
	NationalIDEnc  []byte      `db:"national_id_enc" json:"-"`
	Status         ActorStatus `db:"status" json:"status"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// PersonnelProfile is the staff-side profile row.
type PersonnelProfile struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Position   *string   `db:"position" json:"position,omitempty"`
	Department *string   `db:"department" json:"department,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// StudentProfile carries the student lookup code and class placement.
type StudentProfile struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	StudentCode *string   `db:"student_code" json:"student_code,omitempty"`
	Grade       *string   `db:"grade" json:"grade,omitempty"`
	Classroom   *string   `db:"classroom" json:"classroom,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// GuardianProfile links a guardian to the platform.
type GuardianProfile struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	PhoneNumber *string   `db:"phone_number" json:"phone_number,omitempty"`
	Relation    *string   `db:"relation" json:"relation,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
