package models

import "time"

type HandoverRole string

const (
	RoleOwner  HandoverRole = "OWNER"
	RoleFinder HandoverRole = "FINDER"
)

func (r HandoverRole) Valid() bool {
	return r == RoleOwner || r == RoleFinder
}

// Handover is the code-gated confirmation of a physical item transfer.
type Handover struct {
	MatchID             string    `gorm:"size:36;primaryKey" json:"match_id"`
	Code                string    `gorm:"size:12;not null" json:"-"`
	IsConfirmedByOwner  bool      `gorm:"default:false" json:"is_confirmed_by_owner"`
	IsConfirmedByFinder bool      `gorm:"default:false" json:"is_confirmed_by_finder"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
