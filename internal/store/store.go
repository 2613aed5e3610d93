// Package store persists users, reports, matches, conversations and
// handovers. Every mutation is an atomic read-modify-write against a single
// entity keyed by id; collections are never rewritten wholesale.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrConflict       = errors.New("record already exists")
	ErrDuplicateMatch = errors.New("an active match already links these reports")
	ErrHandoverExists = errors.New("handover already initiated")

	// ErrNoChange may be returned by an update function to skip the write.
	// The update then succeeds and yields the stored record unchanged.
	ErrNoChange = errors.New("no change")
)

// ReportFilter narrows ListReports. Zero fields match everything.
type ReportFilter struct {
	CampusID string
	OwnerID  string
	Type     models.ReportType
	Status   models.ReportStatus
}

// MatchFilter narrows ListMatches. ReportIDs and InitiatorID are alternatives:
// a match is returned when it links any of ReportIDs or was started by
// InitiatorID. When both are empty only CampusID applies.
type MatchFilter struct {
	CampusID    string
	ReportIDs   []string
	InitiatorID string
}

type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error)

	PutChallenge(ctx context.Context, c *models.LoginChallenge) error
	UpdateChallenge(ctx context.Context, email string, fn func(*models.LoginChallenge) error) (*models.LoginChallenge, error)
	DeleteChallenge(ctx context.Context, email string) error

	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, f ReportFilter) ([]models.Report, error)
	UpdateReport(ctx context.Context, id string, fn func(*models.Report) error) (*models.Report, error)

	// CreateMatch validates m and inserts it unless an active match already
	// occupies the same pair, in which case it returns ErrDuplicateMatch.
	CreateMatch(ctx context.Context, m *models.Match) error
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	ListMatches(ctx context.Context, f MatchFilter) ([]models.Match, error)
	UpdateMatch(ctx context.Context, id string, fn func(*models.Match) error) (*models.Match, error)

	// AppendMessage stores msg with a timestamp strictly after the previous
	// message of the same match.
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, matchID string) ([]models.ChatMessage, error)
	LatestMessageTimes(ctx context.Context, matchIDs []string) (map[string]time.Time, error)

	CreateHandover(ctx context.Context, h *models.Handover) error
	GetHandover(ctx context.Context, matchID string) (*models.Handover, error)
	UpdateHandover(ctx context.Context, matchID string, fn func(*models.Handover) error) (*models.Handover, error)

	Ping(ctx context.Context) error
}

// nextTimestamp keeps message timestamps strictly increasing per match.
// Microsecond steps survive Postgres timestamp precision.
func nextTimestamp(want, last time.Time) time.Time {
	want = want.UTC().Truncate(time.Microsecond)
	if !last.IsZero() && !want.After(last) {
		return last.Add(time.Microsecond)
	}
	return want
}

func pairChanged(before, after *models.Match) bool {
	return before.LostReportID != after.LostReportID || before.FoundReportID != after.FoundReportID
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Gorm)(nil)
)
