package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a campus member. Accounts are created on first successful login.
type User struct {
	ID                string    `gorm:"size:36;primaryKey" json:"id"`
	CampusID          string    `gorm:"size:50;not null;index" json:"campus_id"`
	Name              string    `gorm:"size:120;not null" json:"name"`
	Email             string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	IsVerified        bool      `gorm:"default:false" json:"is_verified"`
	MuteNotifications bool      `gorm:"default:false" json:"mute_notifications"`
	Role              string    `gorm:"size:20;default:'user'" json:"role"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
