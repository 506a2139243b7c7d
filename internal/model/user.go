package model

import "time"

// User mirrors the 'users' table. A user authenticates with either a unique
// email (web) or a unique phone scoped to a school (mobile). The current
// refresh token is stored on the row itself: one live refresh token per
// user, rotation overwrites it.
type User struct {
	ID            uint64     `json:"id"`
	RoleID        uint64     `json:"role_id"`
	RoleName      string     `json:"role_name,omitempty"` // joined from roles
	SchoolID      *uint64    `json:"school_id,omitempty"`
	Name          string     `json:"name"`
	Email         *string    `json:"email,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	PasswordHash  string     `json:"-"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	LastIP        *string    `json:"last_ip,omitempty"`
	LoginAttempts int        `json:"login_attempts"`
	IsVerified    string     `json:"is_verified"` // yes | no
	RefreshToken  *string    `json:"-"`
	Status        string     `json:"status"` // active | inactive
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"

	VerifiedYes = "yes"
	VerifiedNo  = "no"
)
