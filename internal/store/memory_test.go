package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMemoryReportLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	r := &models.Report{CampusID: "shirpur", OwnerID: "u1", Type: models.ReportLost, ItemName: "Blue Backpack"}
	require.NoError(t, s.CreateReport(ctx, r))
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, models.StatusOpen, r.Status)

	updated, err := s.UpdateReport(ctx, r.ID, func(r *models.Report) error {
		r.Status = models.StatusReturned
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, updated.Status)

	got, err := s.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, got.Status)

	_, err = s.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	r := &models.Report{ID: "r1", Type: models.ReportFound, ItemName: "Keys"}
	require.NoError(t, s.CreateReport(ctx, r))

	got, err := s.GetReport(ctx, "r1")
	require.NoError(t, err)
	got.ItemName = "mutated"

	again, err := s.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Keys", again.ItemName)
}

func TestMemoryUpdateErrorsLeaveRecordUntouched(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreateReport(ctx, &models.Report{ID: "r1", ItemName: "Keys"}))

	boom := errors.New("boom")
	_, err := s.UpdateReport(ctx, "r1", func(r *models.Report) error {
		r.ItemName = "half-written"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.UpdateReport(ctx, "r1", func(r *models.Report) error {
		r.ItemName = "ignored"
		return ErrNoChange
	})
	require.NoError(t, err)
	assert.Equal(t, "Keys", got.ItemName)
}

func TestMemoryListReportsFilters(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemory()

	reports := []models.Report{
		{ID: "a", CampusID: "shirpur", OwnerID: "u1", Type: models.ReportLost, CreatedAt: base},
		{ID: "b", CampusID: "shirpur", OwnerID: "u2", Type: models.ReportFound, CreatedAt: base.Add(time.Minute)},
		{ID: "c", CampusID: "mumbai", OwnerID: "u2", Type: models.ReportFound, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "d", CampusID: "shirpur", OwnerID: "u2", Type: models.ReportFound, Status: models.StatusReturned, CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range reports {
		require.NoError(t, s.CreateReport(ctx, &reports[i]))
	}

	open, err := s.ListReports(ctx, ReportFilter{CampusID: "shirpur", Status: models.StatusOpen})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "b", open[0].ID, "newest first")
	assert.Equal(t, "a", open[1].ID)

	mine, err := s.ListReports(ctx, ReportFilter{OwnerID: "u2", Type: models.ReportFound})
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestMemoryCreateMatchPairInvariant(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	first := &models.Match{LostReportID: "l1", FoundReportID: "f1", Confidence: 85, InitiatorID: "u1"}
	require.NoError(t, s.CreateMatch(ctx, first))
	assert.Equal(t, models.MatchPending, first.Status)

	dup := &models.Match{LostReportID: "l1", FoundReportID: "f1", Confidence: 100, InitiatorID: "u2"}
	assert.ErrorIs(t, s.CreateMatch(ctx, dup), ErrDuplicateMatch)

	_, err := s.UpdateMatch(ctx, first.ID, func(m *models.Match) error {
		m.Status = models.MatchRejected
		return nil
	})
	require.NoError(t, err)

	fresh := &models.Match{LostReportID: "l1", FoundReportID: "f1", Confidence: 100, InitiatorID: "u1"}
	require.NoError(t, s.CreateMatch(ctx, fresh), "a rejected match no longer blocks the pair")

	both := &models.Match{LostReportID: models.PendingOwnerReport, FoundReportID: models.PendingFinderReport}
	assert.ErrorIs(t, s.CreateMatch(ctx, both), models.ErrInvalidMatch)
}

func TestMemoryPlaceholderMatchesArePerInitiator(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	a := &models.Match{LostReportID: models.PendingOwnerReport, FoundReportID: "f1", Confidence: 100, InitiatorID: "u1"}
	b := &models.Match{LostReportID: models.PendingOwnerReport, FoundReportID: "f1", Confidence: 100, InitiatorID: "u2"}
	require.NoError(t, s.CreateMatch(ctx, a))
	require.NoError(t, s.CreateMatch(ctx, b))

	again := &models.Match{LostReportID: models.PendingOwnerReport, FoundReportID: "f1", Confidence: 100, InitiatorID: "u1"}
	assert.ErrorIs(t, s.CreateMatch(ctx, again), ErrDuplicateMatch)
}

func TestMemoryUpdateMatchRechecksPair(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.CreateMatch(ctx, &models.Match{ID: "m1", LostReportID: "l1", FoundReportID: "f1", InitiatorID: "u1"}))
	require.NoError(t, s.CreateMatch(ctx, &models.Match{ID: "m2", LostReportID: models.PendingOwnerReport, FoundReportID: "f1", InitiatorID: "u1"}))

	_, err := s.UpdateMatch(ctx, "m2", func(m *models.Match) error {
		m.LostReportID = "l1"
		return nil
	})
	assert.ErrorIs(t, err, ErrDuplicateMatch)

	got, err := s.GetMatch(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, models.PendingOwnerReport, got.LostReportID)
}

func TestMemoryConcurrentMatchCreation(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.CreateMatch(ctx, &models.Match{LostReportID: "l1", FoundReportID: "f1", InitiatorID: "u1"})
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateMatch)
		}
	}
	assert.Equal(t, 1, created)
}

func TestMemoryConcurrentAttemptIncrements(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreateMatch(ctx, &models.Match{ID: "m1", LostReportID: "l1", FoundReportID: "f1"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateMatch(ctx, "m1", func(m *models.Match) error {
				m.Attempts++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	m, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 50, m.Attempts)
}

func TestMemoryListMatchesByParticipant(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreateMatch(ctx, &models.Match{ID: "m1", CampusID: "c", LostReportID: "l1", FoundReportID: "f1", InitiatorID: "u9"}))
	require.NoError(t, s.CreateMatch(ctx, &models.Match{ID: "m2", CampusID: "c", LostReportID: models.PendingOwnerReport, FoundReportID: "f2", InitiatorID: "u1"}))
	require.NoError(t, s.CreateMatch(ctx, &models.Match{ID: "m3", CampusID: "c", LostReportID: "l3", FoundReportID: "f3", InitiatorID: "u9"}))

	got, err := s.ListMatches(ctx, MatchFilter{CampusID: "c", ReportIDs: []string{"l1"}, InitiatorID: "u1"})
	require.NoError(t, err)
	ids := []string{}
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{"m1", "m2"}, ids)
}

func TestMemoryMessagesStrictlyOrdered(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemory().WithClock(fixedClock(now))
	require.NoError(t, s.CreateMatch(ctx, &models.Match{ID: "m1", LostReportID: "l1", FoundReportID: "f1"}))

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, s.AppendMessage(ctx, &models.ChatMessage{MatchID: "m1", SenderID: models.SystemSender, Text: text}))
	}

	msgs, err := s.ListMessages(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})
	assert.True(t, msgs[1].Timestamp.After(msgs[0].Timestamp))
	assert.True(t, msgs[2].Timestamp.After(msgs[1].Timestamp))

	latest, err := s.LatestMessageTimes(ctx, []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, msgs[2].Timestamp, latest["m1"])
	_, ok := latest["m2"]
	assert.False(t, ok)

	err = s.AppendMessage(ctx, &models.ChatMessage{MatchID: "missing", Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryHandoverAtMostOnePerMatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.CreateMatch(ctx, &models.Match{ID: "m1", LostReportID: "l1", FoundReportID: "f1"}))

	require.NoError(t, s.CreateHandover(ctx, &models.Handover{MatchID: "m1", Code: "ABC123"}))
	assert.ErrorIs(t, s.CreateHandover(ctx, &models.Handover{MatchID: "m1", Code: "ZZZ999"}), ErrHandoverExists)

	h, err := s.GetHandover(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", h.Code)

	_, err = s.GetHandover(ctx, "m2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUsersAndChallenges(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	u := &models.User{Email: "Student@NMIMS.in", Name: "Asha"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{Email: "student@nmims.in"}), ErrConflict)

	got, err := s.GetUserByEmail(ctx, "student@nmims.in")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, s.PutChallenge(ctx, &models.LoginChallenge{Email: "Student@nmims.in", CodeHash: "h"}))
	c, err := s.UpdateChallenge(ctx, "student@nmims.in", func(c *models.LoginChallenge) error {
		c.Attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Attempts)

	require.NoError(t, s.DeleteChallenge(ctx, "student@nmims.in"))
	_, err = s.UpdateChallenge(ctx, "student@nmims.in", func(*models.LoginChallenge) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}
