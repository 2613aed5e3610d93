package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/oracle"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
)

// SubmitResult is a stored report with the matches it produced.
type SubmitResult struct {
	Report      *models.Report
	Suggestions []Suggestion
}

type ReportService struct {
	store    store.Store
	oracle   oracle.Oracle
	engine   *MatchingEngine
	filter   *ContentFilter
	notifier *Notifier
	burst    *notify.Burst
	campuses *campus.Registry
	now      func() time.Time
}

func NewReportService(
	st store.Store,
	o oracle.Oracle,
	engine *MatchingEngine,
	filter *ContentFilter,
	notifier *Notifier,
	burst *notify.Burst,
	campuses *campus.Registry,
) *ReportService {
	return &ReportService{
		store:    st,
		oracle:   o,
		engine:   engine,
		filter:   filter,
		notifier: notifier,
		burst:    burst,
		campuses: campuses,
		now:      time.Now,
	}
}

func (s *ReportService) Submit(ctx context.Context, sess Session, req *dto.CreateReportRequest) (*SubmitResult, error) {
	r, err := s.build(sess, req)
	if err != nil {
		return nil, err
	}

	if r.Type == models.ReportFound && r.VerificationAnswer == "" {
		q, err := s.oracle.GenerateVerificationQuestion(ctx, r)
		if err != nil {
			slog.Warn("verification question generation failed", "error", err)
			q = oracle.FallbackQuestion
		}
		r.VerificationQuestion, r.VerificationAnswer = q.Question, q.Answer
	}

	if err := s.store.CreateReport(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	slog.Info("report submitted", "report_id", r.ID, "campus_id", r.CampusID, "type", r.Type)

	campusName := s.campuses.Name(r.CampusID)
	if campusName == "" {
		campusName = "campus"
	}
	s.burst.Announce(r.CampusID,
		fmt.Sprintf("%s: %s", r.Type, r.ItemName),
		"New report near "+r.Location+".",
		"New activity on "+campusName+".",
		r.ID,
	)

	suggestions, err := s.match(ctx, r)
	if err != nil {
		slog.Error("matching failed", "report_id", r.ID, "error", err)
	}
	for _, sg := range suggestions {
		s.notifier.User(ctx, sg.Counterpart.OwnerID, "Potential Match Found",
			"A new report may match your "+sg.Counterpart.ItemName+".", sg.Counterpart.ID)
	}
	return &SubmitResult{Report: r, Suggestions: suggestions}, nil
}

func (s *ReportService) match(ctx context.Context, r *models.Report) ([]Suggestion, error) {
	pool, err := s.store.ListReports(ctx, store.ReportFilter{
		CampusID: r.CampusID,
		Type:     r.Type.Opposite(),
		Status:   models.StatusOpen,
	})
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListMatches(ctx, store.MatchFilter{CampusID: r.CampusID, ReportIDs: []string{r.ID}})
	if err != nil {
		return nil, err
	}
	return s.engine.Propose(ctx, r, pool, existing)
}

func (s *ReportService) build(sess Session, req *dto.CreateReportRequest) (*models.Report, error) {
	t := models.ReportType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if !t.Valid() {
		return nil, fmt.Errorf("%w: type must be LOST or FOUND", ErrInvalidReport)
	}
	itemName := strings.TrimSpace(req.ItemName)
	if itemName == "" {
		return nil, fmt.Errorf("%w: item_name is required", ErrInvalidReport)
	}
	question := strings.TrimSpace(req.VerificationQuestion)
	answer := strings.TrimSpace(req.VerificationAnswer)
	if (question == "") != (answer == "") {
		return nil, fmt.Errorf("%w: verification question and answer go together", ErrInvalidReport)
	}
	if t == models.ReportLost {
		question, answer = "", ""
	}

	r := &models.Report{
		CampusID:             sess.CampusID,
		OwnerID:              sess.UserID,
		Type:                 t,
		Category:             normalizeCategory(req.Category),
		ItemName:             itemName,
		Description:          strings.TrimSpace(req.Description),
		Location:             strings.TrimSpace(req.Location),
		ImageRef:             strings.TrimSpace(req.ImageRef),
		Status:               models.StatusOpen,
		VerificationQuestion: question,
		VerificationAnswer:   answer,
	}
	for _, text := range []string{r.ItemName, r.Description, r.Location, question} {
		if ok, reason := s.filter.CheckReport(text); !ok {
			return nil, fmt.Errorf("%w: %s", ErrContentRejected, s.filter.RejectionMessage(reason))
		}
	}
	r.OccurredAt = s.now().UTC()
	if req.OccurredAt != nil && !req.OccurredAt.IsZero() {
		r.OccurredAt = req.OccurredAt.UTC()
	}
	r.IsSensitive = req.IsSensitive || s.campuses.IsSensitive(sess.CampusID, r.Category)
	return r, nil
}

// Feed lists the campus's open reports, newest first. query matches the item
// name or category.
func (s *ReportService) Feed(ctx context.Context, sess Session, reportType, query string) ([]models.Report, error) {
	f := store.ReportFilter{CampusID: sess.CampusID, Status: models.StatusOpen}
	if reportType != "" {
		t := models.ReportType(strings.ToUpper(reportType))
		if !t.Valid() {
			return nil, fmt.Errorf("%w: type must be LOST or FOUND", ErrInvalidReport)
		}
		f.Type = t
	}
	reports, err := s.store.ListReports(ctx, f)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return reports, nil
	}
	out := reports[:0]
	for _, r := range reports {
		if strings.Contains(strings.ToLower(r.ItemName), query) || strings.Contains(strings.ToLower(r.Category), query) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *ReportService) Get(ctx context.Context, sess Session, id string) (*models.Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.CampusID != sess.CampusID {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (s *ReportService) Mine(ctx context.Context, sess Session) ([]models.Report, error) {
	return s.store.ListReports(ctx, store.ReportFilter{CampusID: sess.CampusID, OwnerID: sess.UserID})
}

// Close withdraws a report from the campus feed. Returned reports keep
// their status.
func (s *ReportService) Close(ctx context.Context, campusID, reportID string) (*models.Report, error) {
	existing, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if campusID != "" && existing.CampusID != campusID {
		return nil, store.ErrNotFound
	}
	r, err := s.store.UpdateReport(ctx, reportID, func(cur *models.Report) error {
		switch cur.Status {
		case models.StatusReturned:
			return ErrReportReturned
		case models.StatusClosed:
			return store.ErrNoChange
		}
		cur.Status = models.StatusClosed
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("report closed", "report_id", r.ID, "campus_id", r.CampusID)
	return r, nil
}

func normalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	for _, known := range models.Categories {
		if strings.EqualFold(known, c) {
			return known
		}
	}
	return "Other"
}
