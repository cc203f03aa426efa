package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account known to the user directory.
type User struct {
	gorm.Model               // ID, CreatedAt, UpdatedAt, DeletedAt
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	Nickname      string     `gorm:"type:varchar(30);not null" json:"nickname"`
	Password      string     `gorm:"not null" json:"-"`
	Role          UserRole   `gorm:"type:varchar(10);not null;default:USER" json:"role"`
	CreatedRoomID *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"createdRoomId,omitempty"` // room this user currently created
}

// UserRole is the account-level role carried in the bearer credential.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)
