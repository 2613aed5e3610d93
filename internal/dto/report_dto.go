package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
)

type CreateReportRequest struct {
	Type                 string     `json:"type"`
	Category             string     `json:"category"`
	ItemName             string     `json:"item_name"`
	Description          string     `json:"description"`
	Location             string     `json:"location"`
	OccurredAt           *time.Time `json:"occurred_at,omitempty"`
	ImageRef             string     `json:"image_ref,omitempty"`
	IsSensitive          bool       `json:"is_sensitive"`
	VerificationQuestion string     `json:"verification_question,omitempty"`
	VerificationAnswer   string     `json:"verification_answer,omitempty"`
}

// ReportResponse is the public shape of a report. The verification answer
// is never part of it.
type ReportResponse struct {
	ID                   string    `json:"id"`
	CampusID             string    `json:"campus_id"`
	OwnerID              string    `json:"owner_id"`
	Type                 string    `json:"type"`
	Category             string    `json:"category"`
	ItemName             string    `json:"item_name"`
	Description          string    `json:"description"`
	Location             string    `json:"location"`
	OccurredAt           time.Time `json:"occurred_at"`
	ImageRef             string    `json:"image_ref,omitempty"`
	IsSensitive          bool      `json:"is_sensitive"`
	Status               string    `json:"status"`
	VerificationQuestion string    `json:"verification_question,omitempty"`
	IsMine               bool      `json:"is_mine"`
	CreatedAt            time.Time `json:"created_at"`
}

// NewReportResponse shapes r for viewerID. Images of sensitive reports are
// shown to their owner only.
func NewReportResponse(r *models.Report, viewerID string) ReportResponse {
	resp := ReportResponse{
		ID:                   r.ID,
		CampusID:             r.CampusID,
		OwnerID:              r.OwnerID,
		Type:                 string(r.Type),
		Category:             r.Category,
		ItemName:             r.ItemName,
		Description:          r.Description,
		Location:             r.Location,
		OccurredAt:           r.OccurredAt,
		ImageRef:             r.ImageRef,
		IsSensitive:          r.IsSensitive,
		Status:               string(r.Status),
		VerificationQuestion: r.VerificationQuestion,
		IsMine:               r.OwnerID == viewerID,
		CreatedAt:            r.CreatedAt,
	}
	if r.IsSensitive && !resp.IsMine {
		resp.ImageRef = ""
	}
	return resp
}

func NewReportList(reports []models.Report, viewerID string) []ReportResponse {
	out := make([]ReportResponse, len(reports))
	for i := range reports {
		out[i] = NewReportResponse(&reports[i], viewerID)
	}
	return out
}

type SuggestionResponse struct {
	Match       MatchResponse  `json:"match"`
	Counterpart ReportResponse `json:"counterpart"`
}

type SubmitReportResponse struct {
	Report      ReportResponse       `json:"report"`
	Suggestions []SuggestionResponse `json:"suggestions"`
}

type StartChatRequest struct {
	OwnReportID string `json:"own_report_id,omitempty"`
}
