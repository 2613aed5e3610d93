package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
)

var (
	ErrNotParticipant          = errors.New("not a participant of this match")
	ErrVerificationUnavailable = errors.New("verification needs the finder's report")
	ErrEmptyAnswer             = errors.New("answer is required")
	ErrInvalidReport           = errors.New("invalid report")
	ErrOwnReport               = errors.New("cannot start a chat on your own report")
	ErrReportClosed            = errors.New("report is no longer open")
	ErrReportReturned          = errors.New("report has already been returned")
	ErrAttachNotAllowed        = errors.New("report cannot be attached to this match")
	ErrEmptyMessage            = errors.New("message text is required")
	ErrContentRejected         = errors.New("content rejected")
	ErrHandoverNotAllowed      = errors.New("handover requires a verified, open match")
	ErrInvalidRole             = errors.New("role must be OWNER or FINDER")
)

// Session identifies the caller of a service operation.
type Session struct {
	UserID   string
	CampusID string
}

// Parties resolves who plays which role in a match. A placeholder side is
// played by the match initiator.
type Parties struct {
	OwnerID  string
	FinderID string
	Lost     *models.Report
	Found    *models.Report
}

func (p *Parties) Has(userID string) bool {
	return userID != "" && (p.OwnerID == userID || p.FinderID == userID)
}

// Role returns the handover role userID holds. Owner wins when one user
// holds both sides.
func (p *Parties) Role(userID string) (models.HandoverRole, bool) {
	switch userID {
	case "":
		return "", false
	case p.OwnerID:
		return models.RoleOwner, true
	case p.FinderID:
		return models.RoleFinder, true
	}
	return "", false
}

func (p *Parties) Counterpart(userID string) string {
	if p.OwnerID == userID {
		return p.FinderID
	}
	return p.OwnerID
}

// CounterpartReport is the concrete report on the other side, if any.
func (p *Parties) CounterpartReport(userID string) *models.Report {
	if p.OwnerID == userID {
		return p.Found
	}
	return p.Lost
}

// Returned reports whether either concrete side has been handed over.
func (p *Parties) Returned() bool {
	return (p.Lost != nil && p.Lost.Status == models.StatusReturned) ||
		(p.Found != nil && p.Found.Status == models.StatusReturned)
}

func resolveParties(ctx context.Context, st store.Store, m *models.Match) (*Parties, error) {
	p := &Parties{OwnerID: m.InitiatorID, FinderID: m.InitiatorID}
	if !models.IsPlaceholder(m.LostReportID) {
		lost, err := st.GetReport(ctx, m.LostReportID)
		if err != nil {
			return nil, fmt.Errorf("failed to load lost report: %w", err)
		}
		p.Lost, p.OwnerID = lost, lost.OwnerID
	}
	if !models.IsPlaceholder(m.FoundReportID) {
		found, err := st.GetReport(ctx, m.FoundReportID)
		if err != nil {
			return nil, fmt.Errorf("failed to load found report: %w", err)
		}
		p.Found, p.FinderID = found, found.OwnerID
	}
	return p, nil
}

// loadMatch fetches a match visible to the session along with its parties,
// and requires the caller to be one of them.
func loadMatch(ctx context.Context, st store.Store, sess Session, matchID string) (*models.Match, *Parties, error) {
	m, err := st.GetMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if m.CampusID != sess.CampusID {
		return nil, nil, store.ErrNotFound
	}
	p, err := resolveParties(ctx, st, m)
	if err != nil {
		return nil, nil, err
	}
	if !p.Has(sess.UserID) {
		return nil, nil, ErrNotParticipant
	}
	return m, p, nil
}

// Notifier routes notices about a user's report through the sink unless
// that user muted notifications.
type Notifier struct {
	store store.Store
	sink  notify.Sink
}

func NewNotifier(st store.Store, sink notify.Sink) *Notifier {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &Notifier{store: st, sink: sink}
}

func (n *Notifier) User(ctx context.Context, userID, title, body, reportID string) {
	if userID == "" {
		return
	}
	u, err := n.store.GetUser(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("notification recipient lookup failed", "user_id", userID, "error", err)
		return
	}
	if u != nil && u.MuteNotifications {
		return
	}
	n.sink.Notify(title, body, reportID)
}
