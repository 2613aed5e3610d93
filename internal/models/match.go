package models

import (
	"errors"
	"time"
)

type MatchStatus string

const (
	MatchPending  MatchStatus = "PENDING"
	MatchVerified MatchStatus = "VERIFIED"
	MatchRejected MatchStatus = "REJECTED"
)

// Placeholders stand in for a side that has not filed a report yet.
const (
	PendingOwnerReport  = "PENDING_OWNER_REPORT"
	PendingFinderReport = "PENDING_FINDER_REPORT"
)

// MaxVerificationAttempts is the number of wrong answers that rejects a match.
const MaxVerificationAttempts = 2

// DirectClaimConfidence is carried by matches opened without the oracle.
const DirectClaimConfidence = 100

var ErrInvalidMatch = errors.New("match must link at least one concrete report")

// Match pairs one LOST and one FOUND report.
type Match struct {
	ID            string      `gorm:"size:36;primaryKey" json:"id"`
	CampusID      string      `gorm:"size:50;not null;index" json:"campus_id"`
	LostReportID  string      `gorm:"size:36;not null;index" json:"lost_report_id"`
	FoundReportID string      `gorm:"size:36;not null;index" json:"found_report_id"`
	InitiatorID   string      `gorm:"size:36;not null;index" json:"initiator_id"`
	Confidence    int         `gorm:"not null" json:"confidence"`
	Status        MatchStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	Attempts      int         `gorm:"default:0" json:"attempts"`
	ClaimedAt     *time.Time  `json:"claimed_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func IsPlaceholder(reportID string) bool {
	return reportID == PendingOwnerReport || reportID == PendingFinderReport
}

func (m *Match) Validate() error {
	if m.LostReportID == "" || m.FoundReportID == "" {
		return ErrInvalidMatch
	}
	if IsPlaceholder(m.LostReportID) && IsPlaceholder(m.FoundReportID) {
		return ErrInvalidMatch
	}
	if m.Confidence < 0 || m.Confidence > 100 {
		return errors.New("match confidence out of range")
	}
	return nil
}

// Links reports whether the match pairs reports a and b in either role order.
func (m *Match) Links(a, b string) bool {
	return (m.LostReportID == a && m.FoundReportID == b) ||
		(m.LostReportID == b && m.FoundReportID == a)
}

// SamePair reports whether m and other occupy the same pairing slot.
// Placeholder pairings are keyed by their initiator as well.
func (m *Match) SamePair(other *Match) bool {
	if !m.Links(other.LostReportID, other.FoundReportID) {
		return false
	}
	if m.HasPlaceholder() {
		return m.InitiatorID == other.InitiatorID
	}
	return true
}

func (m *Match) HasPlaceholder() bool {
	return IsPlaceholder(m.LostReportID) || IsPlaceholder(m.FoundReportID)
}

// Active reports whether the match still counts against the pair invariant.
func (m *Match) Active() bool {
	return m.Status != MatchRejected
}

// ReportIDs returns the concrete report ids the match links.
func (m *Match) ReportIDs() []string {
	ids := make([]string, 0, 2)
	for _, id := range []string{m.LostReportID, m.FoundReportID} {
		if !IsPlaceholder(id) {
			ids = append(ids, id)
		}
	}
	return ids
}
