package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the coarse authorization role carried in the session token.
type Role string

const (
	RoleBuyer    Role = "BUYER"
	RoleVendor   Role = "VENDOR"
	RoleMediator Role = "MEDIATOR"
	RoleAdmin    Role = "ADMIN"
)

// User is the thin account record. Everything beyond identity and role lives
// with the account collaborator; the core only needs a verified identifier.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanMediate reports whether the user may resolve disputes.
func (u *User) CanMediate() bool {
	return u.Role == RoleMediator || u.Role == RoleAdmin
}
