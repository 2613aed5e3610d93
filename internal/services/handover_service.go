package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
)

const (
	handoverCodeLength   = 6
	handoverCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// HandoverView is a handover as seen by one participant. Code is only set
// for the finder.
type HandoverView struct {
	Handover *models.Handover
	Role     models.HandoverRole
	Code     string
}

// ConfirmResult reports whether the code was accepted and whether this
// confirmation closed the case.
type ConfirmResult struct {
	Accepted bool
	Closed   bool
	Handover *models.Handover
}

// HandoverService runs the code-gated item exchange. Only the owner's
// confirmation closes the linked reports.
type HandoverService struct {
	store    store.Store
	chat     *ChatService
	notifier *Notifier
}

func NewHandoverService(st store.Store, chat *ChatService, notifier *Notifier) *HandoverService {
	return &HandoverService{store: st, chat: chat, notifier: notifier}
}

// Initiate creates the handover of a verified match, or returns the
// existing one unchanged.
func (s *HandoverService) Initiate(ctx context.Context, sess Session, matchID string) (*HandoverView, error) {
	m, p, err := loadMatch(ctx, s.store, sess, matchID)
	if err != nil {
		return nil, err
	}
	role, _ := p.Role(sess.UserID)

	if h, err := s.store.GetHandover(ctx, m.ID); err == nil {
		return viewFor(h, role), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if m.Status != models.MatchVerified || p.Found == nil || p.Returned() {
		return nil, ErrHandoverNotAllowed
	}

	code, err := generateHandoverCode()
	if err != nil {
		return nil, err
	}
	h := &models.Handover{MatchID: m.ID, Code: code}
	if err := s.store.CreateHandover(ctx, h); err != nil {
		if errors.Is(err, store.ErrHandoverExists) {
			existing, getErr := s.store.GetHandover(ctx, m.ID)
			if getErr != nil {
				return nil, getErr
			}
			return viewFor(existing, role), nil
		}
		return nil, fmt.Errorf("failed to create handover: %w", err)
	}
	slog.Info("handover initiated", "match_id", m.ID, "user_id", sess.UserID)

	if _, err := s.chat.AppendSystem(ctx, m.ID, "Handover initiated. Finder code for Owner: "+code, p.FinderID); err != nil {
		slog.Error("failed to post handover code", "match_id", m.ID, "error", err)
	}
	if _, err := s.chat.AppendSystem(ctx, m.ID, "Handover initiated. Ask the finder for the code and enter it to confirm.", p.OwnerID); err != nil {
		slog.Error("failed to post handover notice", "match_id", m.ID, "error", err)
	}
	s.notifier.User(ctx, p.Counterpart(sess.UserID), "Handover Started",
		"A handover has been started for your item.", m.FoundReportID)
	return viewFor(h, role), nil
}

func (s *HandoverService) View(ctx context.Context, sess Session, matchID string) (*HandoverView, error) {
	m, p, err := loadMatch(ctx, s.store, sess, matchID)
	if err != nil {
		return nil, err
	}
	h, err := s.store.GetHandover(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	role, _ := p.Role(sess.UserID)
	return viewFor(h, role), nil
}

// Confirm records the caller's confirmation for role. A wrong code leaves
// the handover untouched and reports Accepted=false.
func (s *HandoverService) Confirm(ctx context.Context, sess Session, matchID string, role models.HandoverRole, providedCode string) (*ConfirmResult, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	m, p, err := loadMatch(ctx, s.store, sess, matchID)
	if err != nil {
		return nil, err
	}
	if held, _ := p.Role(sess.UserID); held != role {
		return nil, ErrNotParticipant
	}

	code := strings.ToUpper(strings.TrimSpace(providedCode))
	accepted, ownerConfirmed := false, false
	h, err := s.store.UpdateHandover(ctx, m.ID, func(cur *models.Handover) error {
		accepted, ownerConfirmed = false, false
		if cur.Code != code {
			return store.ErrNoChange
		}
		accepted = true
		switch role {
		case models.RoleOwner:
			if cur.IsConfirmedByOwner {
				return store.ErrNoChange
			}
			cur.IsConfirmedByOwner = true
			ownerConfirmed = true
		case models.RoleFinder:
			if cur.IsConfirmedByFinder {
				return store.ErrNoChange
			}
			cur.IsConfirmedByFinder = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm handover: %w", err)
	}
	if !accepted {
		slog.Info("handover code mismatch", "match_id", m.ID, "role", role)
		return &ConfirmResult{Handover: h}, nil
	}

	if ownerConfirmed {
		s.close(ctx, m, p)
	}
	return &ConfirmResult{Accepted: true, Closed: ownerConfirmed, Handover: h}, nil
}

func (s *HandoverService) close(ctx context.Context, m *models.Match, p *Parties) {
	for _, id := range m.ReportIDs() {
		_, err := s.store.UpdateReport(ctx, id, func(r *models.Report) error {
			if r.Status == models.StatusReturned {
				return store.ErrNoChange
			}
			r.Status = models.StatusReturned
			return nil
		})
		if err != nil {
			slog.Error("failed to mark report returned", "match_id", m.ID, "report_id", id, "error", err)
		}
	}
	if _, err := s.chat.AppendSystem(ctx, m.ID, msgHandedOver, ""); err != nil {
		slog.Error("failed to post closing message", "match_id", m.ID, "error", err)
	}
	slog.Info("item handed over", "match_id", m.ID)
	s.notifier.User(ctx, p.FinderID, "Item Returned",
		"The owner confirmed the handover. Thank you for returning the item.", m.FoundReportID)
}

func viewFor(h *models.Handover, role models.HandoverRole) *HandoverView {
	v := &HandoverView{Handover: h, Role: role}
	if role == models.RoleFinder {
		v.Code = h.Code
	}
	return v
}

func generateHandoverCode() (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(handoverCodeAlphabet)))
	for i := 0; i < handoverCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate handover code: %w", err)
		}
		sb.WriteByte(handoverCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
