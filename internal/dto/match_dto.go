package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
)

type MatchResponse struct {
	ID            string    `json:"id"`
	LostReportID  string    `json:"lost_report_id"`
	FoundReportID string    `json:"found_report_id"`
	Confidence    int       `json:"confidence"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewMatchResponse(m *models.Match) MatchResponse {
	return MatchResponse{
		ID:            m.ID,
		LostReportID:  m.LostReportID,
		FoundReportID: m.FoundReportID,
		Confidence:    m.Confidence,
		Status:        string(m.Status),
		Attempts:      m.Attempts,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type MatchViewResponse struct {
	Match             MatchResponse   `json:"match"`
	Role              string          `json:"role"`
	Counterpart       *ReportResponse `json:"counterpart,omitempty"`
	OwnReport         *ReportResponse `json:"own_report,omitempty"`
	Question          string          `json:"verification_question,omitempty"`
	RemainingAttempts int             `json:"remaining_attempts"`
	LastActivity      *time.Time      `json:"last_activity,omitempty"`
}

type DismissRequest struct {
	MatchIDs []string `json:"match_ids"`
}

type AttachReportRequest struct {
	ReportID string `json:"report_id"`
}

type VerifyRequest struct {
	Answer string `json:"answer"`
}

type VerifyResponse struct {
	Success           bool   `json:"success"`
	Status            string `json:"status"`
	Attempts          int    `json:"attempts"`
	RemainingAttempts int    `json:"remaining_attempts"`
	Evict             bool   `json:"evict"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	IsSystem  bool      `json:"is_system"`
	IsMine    bool      `json:"is_mine"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMessageResponse(m *models.ChatMessage, viewerID string) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		IsSystem:  m.IsSystem(),
		IsMine:    m.SenderID == viewerID,
		Timestamp: m.Timestamp,
	}
}

type SendMessageResponse struct {
	Stored  bool             `json:"stored"`
	Message *MessageResponse `json:"message,omitempty"`
}

type HandoverResponse struct {
	MatchID             string    `json:"match_id"`
	Role                string    `json:"role"`
	Code                string    `json:"code,omitempty"`
	IsConfirmedByOwner  bool      `json:"is_confirmed_by_owner"`
	IsConfirmedByFinder bool      `json:"is_confirmed_by_finder"`
	CreatedAt           time.Time `json:"created_at"`
}

type ConfirmHandoverRequest struct {
	Role string `json:"role"`
	Code string `json:"code"`
}

type ConfirmHandoverResponse struct {
	Accepted            bool `json:"accepted"`
	Closed              bool `json:"closed"`
	IsConfirmedByOwner  bool `json:"is_confirmed_by_owner"`
	IsConfirmedByFinder bool `json:"is_confirmed_by_finder"`
}
