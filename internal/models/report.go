package models

import (
	"time"
)

type ReportType string

const (
	ReportLost  ReportType = "LOST"
	ReportFound ReportType = "FOUND"
)

// Opposite returns the report type a report of type t can be matched with.
func (t ReportType) Opposite() ReportType {
	if t == ReportLost {
		return ReportFound
	}
	return ReportLost
}

func (t ReportType) Valid() bool {
	return t == ReportLost || t == ReportFound
}

type ReportStatus string

const (
	StatusOpen     ReportStatus = "OPEN"
	StatusMatched  ReportStatus = "MATCHED"
	StatusReturned ReportStatus = "RETURNED"
	StatusClosed   ReportStatus = "CLOSED"
)

// Categories offered by the report form. Unknown categories fall back to "Other".
var Categories = []string{
	"Electronics", "ID Cards", "Wallet/Bags", "Keys", "Stationery", "Clothing", "Books", "Other",
}

// Report is a user-filed record of a lost or found item.
// VerificationAnswer is the ownership secret and must never leave the server.
type Report struct {
	ID                   string       `gorm:"size:36;primaryKey" json:"id"`
	CampusID             string       `gorm:"size:50;not null;index" json:"campus_id"`
	OwnerID              string       `gorm:"size:36;not null;index" json:"owner_id"`
	Type                 ReportType   `gorm:"size:10;not null;index" json:"type"`
	Category             string       `gorm:"size:50;not null" json:"category"`
	ItemName             string       `gorm:"size:200;not null" json:"item_name"`
	Description          string       `gorm:"type:text" json:"description"`
	Location             string       `gorm:"size:200" json:"location"`
	OccurredAt           time.Time    `json:"occurred_at"`
	ImageRef             string       `gorm:"type:text" json:"image_ref,omitempty"`
	IsSensitive          bool         `gorm:"default:false" json:"is_sensitive"`
	Status               ReportStatus `gorm:"size:20;not null;default:'OPEN';index" json:"status"`
	VerificationQuestion string       `gorm:"size:500" json:"verification_question,omitempty"`
	VerificationAnswer   string       `gorm:"size:200" json:"-"`
	CreatedAt            time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// Closed reports whether the report has left the matchable lifecycle.
func (r *Report) Closed() bool {
	return r.Status == StatusReturned || r.Status == StatusClosed
}
