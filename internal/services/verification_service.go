package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/oracle"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
)

// VerificationResult carries the outcome of an answer. Callers tell "try
// again" from "rejected" by the match status.
type VerificationResult struct {
	Success bool
	Match   *models.Match
}

// RemainingAttempts is the number of answers the owner may still submit.
func (r *VerificationResult) RemainingAttempts() int {
	if r.Match.Status != models.MatchPending {
		return 0
	}
	return max(models.MaxVerificationAttempts-r.Match.Attempts, 0)
}

// Evict reports whether the caller must leave the conversation.
func (r *VerificationResult) Evict() bool {
	return r.Match.Status == models.MatchRejected
}

// VerificationService gates a match behind the finder's ownership question.
// PENDING moves to VERIFIED or REJECTED exactly once.
type VerificationService struct {
	store    store.Store
	oracle   oracle.Oracle
	chat     *ChatService
	notifier *Notifier
}

func NewVerificationService(st store.Store, o oracle.Oracle, chat *ChatService, notifier *Notifier) *VerificationService {
	return &VerificationService{store: st, oracle: o, chat: chat, notifier: notifier}
}

func (s *VerificationService) SubmitAnswer(ctx context.Context, sess Session, matchID, answer string) (*VerificationResult, error) {
	m, p, err := loadMatch(ctx, s.store, sess, matchID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != sess.UserID {
		return nil, ErrNotParticipant
	}
	switch m.Status {
	case models.MatchVerified:
		return &VerificationResult{Success: true, Match: m}, nil
	case models.MatchRejected:
		return &VerificationResult{Success: false, Match: m}, nil
	}
	if p.Found == nil {
		return nil, ErrVerificationUnavailable
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}

	correct, err := s.oracle.ValidateAnswer(ctx, answer, p.Found.VerificationAnswer)
	if err != nil {
		slog.Warn("answer validation failed", "match_id", m.ID, "error", err)
		correct = false
	}

	var transition models.MatchStatus
	updated, err := s.store.UpdateMatch(ctx, m.ID, func(cur *models.Match) error {
		transition = ""
		if cur.Status != models.MatchPending {
			return store.ErrNoChange
		}
		if correct {
			cur.Status = models.MatchVerified
			transition = models.MatchVerified
			return nil
		}
		cur.Attempts++
		if cur.Attempts >= models.MaxVerificationAttempts {
			cur.Status = models.MatchRejected
			transition = models.MatchRejected
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	switch transition {
	case models.MatchVerified:
		s.onVerified(ctx, updated, p)
	case models.MatchRejected:
		slog.Info("match rejected", "match_id", updated.ID, "attempts", updated.Attempts)
		if _, err := s.chat.AppendSystem(ctx, updated.ID, msgRejected, ""); err != nil {
			slog.Error("failed to post rejection message", "match_id", updated.ID, "error", err)
		}
	}
	return &VerificationResult{Success: updated.Status == models.MatchVerified, Match: updated}, nil
}

func (s *VerificationService) onVerified(ctx context.Context, m *models.Match, p *Parties) {
	slog.Info("match verified", "match_id", m.ID)
	if _, err := s.chat.AppendSystem(ctx, m.ID, msgVerified, ""); err != nil {
		slog.Error("failed to post unlock message", "match_id", m.ID, "error", err)
	}
	for _, id := range m.ReportIDs() {
		_, err := s.store.UpdateReport(ctx, id, func(r *models.Report) error {
			if r.Status != models.StatusOpen {
				return store.ErrNoChange
			}
			r.Status = models.StatusMatched
			return nil
		})
		if err != nil {
			slog.Error("failed to mark report matched", "match_id", m.ID, "report_id", id, "error", err)
		}
	}
	s.notifier.User(ctx, p.FinderID, "Ownership Verified",
		"The owner answered your question correctly. You can now chat.", m.FoundReportID)
}
