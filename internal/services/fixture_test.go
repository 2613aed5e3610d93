package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/oracle"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
	"github.com/stretchr/testify/require"
)

const (
	testCampus = "northfield"
	ownerID    = "7a0e8a52-1111-4c1e-9a52-000000000001"
	finderID   = "7a0e8a52-2222-4c1e-9a52-000000000002"
	strangerID = "7a0e8a52-3333-4c1e-9a52-000000000003"
)

type notice struct {
	Title, Body, ReportID string
}

type recorder struct {
	mu      sync.Mutex
	notices []notice
}

func (r *recorder) Notify(title, body, reportID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{title, body, reportID})
}

func (r *recorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Title
	}
	return out
}

// fixture wires every service over the memory store and a scripted oracle.
// scores maps "a|b" report id pairs to a similarity score in either order;
// unknown pairs score defaultScore.
type fixture struct {
	store    *store.Memory
	sink     *recorder
	campuses *campus.Registry

	mu           sync.Mutex
	scores       map[string]int
	defaultScore int

	engine   *MatchingEngine
	chat     *ChatService
	verify   *VerificationService
	handover *HandoverService
	matches  *MatchService
	reports  *ReportService
	auth     *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    store.NewMemory(),
		sink:     &recorder{},
		campuses: campus.NewRegistry(),
		scores:   make(map[string]int),
	}
	require.NoError(t, f.campuses.Register(&campus.Campus{
		ID: testCampus, Name: "Northfield University", EmailDomain: "northfield.edu",
	}))

	o := oracle.NewResilient(oracle.Funcs{
		ScoreFn: func(_ context.Context, a, b *models.Report) (int, error) {
			return f.score(a.ID, b.ID), nil
		},
		QuestionFn: func(_ context.Context, r *models.Report) (oracle.Question, error) {
			return oracle.Question{Question: "What color is the " + strings.ToLower(r.ItemName) + "?", Answer: "Blue"}, nil
		},
		ValidateFn: func(_ context.Context, candidate, expected string) (bool, error) {
			return strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(expected)), nil
		},
	}, time.Second)

	cfg := &config.Config{
		JWTSecret:       "test-secret",
		JWTAccessExpiry: time.Hour,
		LoginDevCode:    "1234",
		LoginCodeTTL:    10 * time.Minute,
	}

	filter := NewContentFilter()
	notifier := NewNotifier(f.store, f.sink)
	f.engine = NewMatchingEngine(o, f.store, 4)
	f.chat = NewChatService(f.store, filter)
	f.verify = NewVerificationService(f.store, o, f.chat, notifier)
	f.handover = NewHandoverService(f.store, f.chat, notifier)
	f.matches = NewMatchService(f.store, f.chat, notifier, f.campuses)
	f.reports = NewReportService(f.store, o, f.engine, filter, notifier, notify.NewBurst(f.sink, 5*time.Second), f.campuses)
	f.auth = NewAuthService(f.store, cfg, f.campuses)
	return f
}

func (f *fixture) setScore(a, b string, score int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[a+"|"+b] = score
}

func (f *fixture) score(a, b string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.scores[a+"|"+b]; ok {
		return s
	}
	if s, ok := f.scores[b+"|"+a]; ok {
		return s
	}
	return f.defaultScore
}

func session(userID string) Session {
	return Session{UserID: userID, CampusID: testCampus}
}

func (f *fixture) report(t *testing.T, owner string, typ models.ReportType, item string) *models.Report {
	t.Helper()
	r := &models.Report{
		CampusID:    testCampus,
		OwnerID:     owner,
		Type:        typ,
		Category:    "Wallet/Bags",
		ItemName:    item,
		Description: item + " left near the library",
		Location:    "Library",
		Status:      models.StatusOpen,
	}
	if typ == models.ReportFound {
		r.VerificationQuestion = "What color is the strap?"
		r.VerificationAnswer = "Blue"
	}
	require.NoError(t, f.store.CreateReport(context.Background(), r))
	return r
}

func (f *fixture) match(t *testing.T, lost, found *models.Report, confidence int) *models.Match {
	t.Helper()
	m := &models.Match{
		CampusID:      testCampus,
		LostReportID:  lost.ID,
		FoundReportID: found.ID,
		InitiatorID:   lost.OwnerID,
		Confidence:    confidence,
		Status:        models.MatchPending,
	}
	require.NoError(t, f.store.CreateMatch(context.Background(), m))
	return m
}

// verifiedMatch returns a VERIFIED match between a lost report of ownerID and
// a found report of finderID.
func (f *fixture) verifiedMatch(t *testing.T) (*models.Match, *models.Report, *models.Report) {
	t.Helper()
	lost := f.report(t, ownerID, models.ReportLost, "Blue Backpack")
	found := f.report(t, finderID, models.ReportFound, "Blue Backpack")
	m := f.match(t, lost, found, 85)
	res, err := f.verify.SubmitAnswer(context.Background(), session(ownerID), m.ID, "blue")
	require.NoError(t, err)
	require.True(t, res.Success)
	return res.Match, lost, found
}

func (f *fixture) messages(t *testing.T, matchID string) []models.ChatMessage {
	t.Helper()
	msgs, err := f.store.ListMessages(context.Background(), matchID)
	require.NoError(t, err)
	return msgs
}

func (f *fixture) reportStatus(t *testing.T, id string) models.ReportStatus {
	t.Helper()
	r, err := f.store.GetReport(context.Background(), id)
	require.NoError(t, err)
	return r.Status
}
