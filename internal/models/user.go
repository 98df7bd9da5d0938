package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User is a warehouse worker. Staff log in with a 4-digit PIN, accounts created
// through registration use email and password.
// Standardized: Go (PascalCase) -> DB (snake_case) -> JSON (camelCase)
type User struct {
	ID           string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	Email        *string        `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash string         `json:"-"`
	PinHash      string         `json:"-"`
	Role         string         `gorm:"not null;default:'staff'" json:"role"`
	IsActive     bool           `gorm:"default:true" json:"isActive"`
	LastLogin    *time.Time     `json:"lastLogin,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID and the default role
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleStaff
	}
	return nil
}

// IsAdmin reports whether the user may manage users and settings
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
