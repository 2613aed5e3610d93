package models

import "time"

// LoginChallenge holds the pending one-time code for an email address.
type LoginChallenge struct {
	Email     string    `gorm:"size:255;primaryKey" json:"email"`
	CampusID  string    `gorm:"size:50;not null" json:"campus_id"`
	CodeHash  string    `gorm:"size:72;not null" json:"-"`
	Attempts  int       `gorm:"default:0" json:"attempts"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *LoginChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
