package models

import (
	"time"

	"github.com/google/uuid"
)

// Role gates lifecycle transitions and report creation.
type Role string

const (
	RoleUser  Role = "user"
	RoleNGO   Role = "ngo"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleNGO || r == RoleAdmin
}

// CanAddress reports whether the role may mark verified issues as addressed.
func (r Role) CanAddress() bool {
	return r == RoleNGO || r == RoleAdmin
}

// CanReport reports whether the role may submit reports.
func (r Role) CanReport() bool {
	return r == RoleUser || r == RoleAdmin
}

// User mirrors the identity provider's account. LastIssueDate and IssuesToday
// back the daily creation limit.
type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string     `gorm:"size:255" json:"email"`
	Role          Role       `gorm:"size:16;not null;default:user" json:"role"`
	LastIssueDate *time.Time `json:"last_issue_date"`
	IssuesToday   int        `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}

// Principal is the acting identity supplied by the identity provider.
type Principal struct {
	UserID uuid.UUID
	Role   Role
	Email  string
}
