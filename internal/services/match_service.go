package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/oracle"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
)

// MatchView is a match from one participant's point of view.
type MatchView struct {
	Match             *models.Match
	Role              models.HandoverRole
	Counterpart       *models.Report
	Own               *models.Report
	Question          string
	RemainingAttempts int
	LastActivity      time.Time
}

// MatchService handles suggestion claims, direct chats and match views.
type MatchService struct {
	store    store.Store
	chat     *ChatService
	notifier *Notifier
	campuses *campus.Registry
	now      func() time.Time
}

func NewMatchService(st store.Store, chat *ChatService, notifier *Notifier, campuses *campus.Registry) *MatchService {
	return &MatchService{store: st, chat: chat, notifier: notifier, campuses: campuses, now: time.Now}
}

// Claim commits the caller to a suggested match. The verification notices
// are posted on the first claim only.
func (s *MatchService) Claim(ctx context.Context, sess Session, matchID string) (*models.Match, error) {
	m, _, err := loadMatch(ctx, s.store, sess, matchID)
	if err != nil {
		return nil, err
	}
	first := false
	updated, err := s.store.UpdateMatch(ctx, m.ID, func(cur *models.Match) error {
		first = false
		if cur.ClaimedAt != nil || cur.Status != models.MatchPending {
			return store.ErrNoChange
		}
		now := s.now().UTC()
		cur.ClaimedAt = &now
		first = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim match: %w", err)
	}
	if first {
		s.postPending(ctx, updated.ID)
		slog.Info("match claimed", "match_id", updated.ID, "user_id", sess.UserID)
	}
	return updated, nil
}

// Dismiss drops suggestions from the caller's view. Matches stay stored.
func (s *MatchService) Dismiss(_ context.Context, sess Session, matchIDs []string) int {
	slog.Debug("suggestions dismissed", "user_id", sess.UserID, "count", len(matchIDs))
	return len(matchIDs)
}

// InitiateChat opens (or reuses) a direct-claim match between the caller and
// the target report. ownReportID optionally names the caller's own report of
// the opposite type; without it the caller's side is a placeholder.
func (s *MatchService) InitiateChat(ctx context.Context, sess Session, targetReportID, ownReportID string) (*models.Match, bool, error) {
	target, err := s.store.GetReport(ctx, targetReportID)
	if err != nil {
		return nil, false, err
	}
	if target.CampusID != sess.CampusID {
		return nil, false, store.ErrNotFound
	}
	if target.OwnerID == sess.UserID {
		return nil, false, ErrOwnReport
	}
	if target.Closed() {
		return nil, false, ErrReportClosed
	}

	if existing, err := s.findChat(ctx, sess, target); err != nil || existing != nil {
		return existing, false, err
	}

	m := &models.Match{
		CampusID:    sess.CampusID,
		InitiatorID: sess.UserID,
		Confidence:  models.DirectClaimConfidence,
		Status:      models.MatchPending,
	}
	now := s.now().UTC()
	m.ClaimedAt = &now

	own := ""
	if ownReportID != "" {
		r, err := s.ownOpenReport(ctx, sess, ownReportID, target.Type.Opposite())
		if err != nil {
			return nil, false, err
		}
		own = r.ID
	}
	if target.Type == models.ReportFound {
		m.FoundReportID, m.LostReportID = target.ID, placeholderOr(own, models.PendingOwnerReport)
	} else {
		m.LostReportID, m.FoundReportID = target.ID, placeholderOr(own, models.PendingFinderReport)
	}

	if err := s.store.CreateMatch(ctx, m); err != nil {
		if errors.Is(err, store.ErrDuplicateMatch) {
			if existing, findErr := s.findChat(ctx, sess, target); findErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to create match: %w", err)
	}
	slog.Info("direct chat initiated", "match_id", m.ID, "report_id", target.ID, "user_id", sess.UserID)

	s.postPending(ctx, m.ID)
	s.notifier.User(ctx, target.OwnerID, "New Interaction",
		"A chat has been started regarding an item you reported on "+s.campusName(sess.CampusID)+".", target.ID)
	return m, true, nil
}

// AttachReport replaces the caller's placeholder side with their own report
// while the match is still pending.
func (s *MatchService) AttachReport(ctx context.Context, sess Session, matchID, reportID string) (*models.Match, error) {
	m, _, err := loadMatch(ctx, s.store, sess, matchID)
	if err != nil {
		return nil, err
	}
	if m.InitiatorID != sess.UserID || m.Status != models.MatchPending {
		return nil, ErrAttachNotAllowed
	}
	var want models.ReportType
	switch {
	case m.LostReportID == models.PendingOwnerReport:
		want = models.ReportLost
	case m.FoundReportID == models.PendingFinderReport:
		want = models.ReportFound
	default:
		return nil, ErrAttachNotAllowed
	}
	r, err := s.ownOpenReport(ctx, sess, reportID, want)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateMatch(ctx, m.ID, func(cur *models.Match) error {
		if cur.Status != models.MatchPending {
			return ErrAttachNotAllowed
		}
		switch {
		case want == models.ReportLost && cur.LostReportID == models.PendingOwnerReport:
			cur.LostReportID = r.ID
		case want == models.ReportFound && cur.FoundReportID == models.PendingFinderReport:
			cur.FoundReportID = r.ID
		default:
			return ErrAttachNotAllowed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("report attached to match", "match_id", updated.ID, "report_id", r.ID)
	return updated, nil
}

// Active lists the caller's non-rejected matches, most recent chat activity
// first.
func (s *MatchService) Active(ctx context.Context, sess Session) ([]MatchView, error) {
	mine, err := s.store.ListReports(ctx, store.ReportFilter{CampusID: sess.CampusID, OwnerID: sess.UserID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(mine))
	for i := range mine {
		ids[i] = mine[i].ID
	}
	matches, err := s.store.ListMatches(ctx, store.MatchFilter{CampusID: sess.CampusID, ReportIDs: ids, InitiatorID: sess.UserID})
	if err != nil {
		return nil, err
	}

	views := make([]MatchView, 0, len(matches))
	matchIDs := make([]string, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		if !m.Active() {
			continue
		}
		p, err := resolveParties(ctx, s.store, m)
		if err != nil {
			return nil, err
		}
		if !p.Has(sess.UserID) {
			continue
		}
		views = append(views, buildView(m, p, sess.UserID))
		matchIDs = append(matchIDs, m.ID)
	}

	latest, err := s.store.LatestMessageTimes(ctx, matchIDs)
	if err != nil {
		return nil, err
	}
	for i := range views {
		views[i].LastActivity = views[i].Match.UpdatedAt
		if t, ok := latest[views[i].Match.ID]; ok && t.After(views[i].LastActivity) {
			views[i].LastActivity = t
		}
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].LastActivity.After(views[j].LastActivity)
	})
	return views, nil
}

func (s *MatchService) View(ctx context.Context, sess Session, matchID string) (*MatchView, error) {
	m, p, err := loadMatch(ctx, s.store, sess, matchID)
	if err != nil {
		return nil, err
	}
	v := buildView(m, p, sess.UserID)
	return &v, nil
}

// findChat returns the caller's active match on target, if one exists.
func (s *MatchService) findChat(ctx context.Context, sess Session, target *models.Report) (*models.Match, error) {
	matches, err := s.store.ListMatches(ctx, store.MatchFilter{CampusID: sess.CampusID, ReportIDs: []string{target.ID}})
	if err != nil {
		return nil, err
	}
	for i := range matches {
		m := &matches[i]
		if !m.Active() {
			continue
		}
		p, err := resolveParties(ctx, s.store, m)
		if err != nil {
			return nil, err
		}
		if p.Has(sess.UserID) {
			return m, nil
		}
	}
	return nil, nil
}

func (s *MatchService) ownOpenReport(ctx context.Context, sess Session, reportID string, want models.ReportType) (*models.Report, error) {
	r, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAttachNotAllowed
		}
		return nil, err
	}
	if r.OwnerID != sess.UserID || r.CampusID != sess.CampusID || r.Type != want || r.Status != models.StatusOpen {
		return nil, ErrAttachNotAllowed
	}
	return r, nil
}

func (s *MatchService) postPending(ctx context.Context, matchID string) {
	for _, text := range []string{msgChatPending, msgOwnerMustProve} {
		if _, err := s.chat.AppendSystem(ctx, matchID, text, ""); err != nil {
			slog.Error("failed to post pending message", "match_id", matchID, "error", err)
			return
		}
	}
}

func (s *MatchService) campusName(id string) string {
	if name := s.campuses.Name(id); name != "" {
		return name
	}
	return "campus"
}

func buildView(m *models.Match, p *Parties, userID string) MatchView {
	role, _ := p.Role(userID)
	v := MatchView{
		Match:       m,
		Role:        role,
		Counterpart: p.CounterpartReport(userID),
	}
	if role == models.RoleOwner {
		v.Own = p.Lost
	} else {
		v.Own = p.Found
	}
	if p.Found != nil {
		v.Question = p.Found.VerificationQuestion
		if v.Question == "" {
			v.Question = oracle.FallbackQuestion.Question
		}
	}
	if m.Status == models.MatchPending {
		v.RemainingAttempts = max(models.MaxVerificationAttempts-m.Attempts, 0)
	}
	return v
}

func placeholderOr(id, placeholder string) string {
	if id != "" {
		return id
	}
	return placeholder
}
