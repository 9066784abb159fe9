package scout

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of actor kinds. Authority decisions switch on it
// exhaustively instead of inspecting runtime types.
type Role string

const (
	RoleScout  Role = "scout"
	RoleParent Role = "parent"
	RoleLeader Role = "leader"
)

func (r Role) Valid() bool {
	switch r {
	case RoleScout, RoleParent, RoleLeader:
		return true
	}
	return false
}

type Account struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ClerkID       string     `json:"clerk_id" db:"clerk_id"`
	Email         string     `json:"email" db:"email"`
	Username      string     `json:"username" db:"username"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	ImageURL      *string    `json:"image_url" db:"image_url"`
	Role          Role       `json:"role" db:"role"`
	GroupID       *uuid.UUID `json:"group_id" db:"group_id"`
	Points        int        `json:"points" db:"points"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateAccountRequest struct {
	ClerkID   string `json:"clerk_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
	Role      Role   `json:"role"`
	GroupID   string `json:"group_id"`
}

type UpdateProfileRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
}
