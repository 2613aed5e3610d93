package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/oracle"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allReports(t *testing.T, f *fixture) []models.Report {
	t.Helper()
	reports, err := f.store.ListReports(context.Background(), store.ReportFilter{CampusID: testCampus})
	require.NoError(t, err)
	return reports
}

func TestProposeCreatesOneMatchPerQualifyingPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lost := f.report(t, ownerID, models.ReportLost, "Blue Backpack")
	strong := f.report(t, finderID, models.ReportFound, "Blue Backpack")
	good := f.report(t, finderID, models.ReportFound, "Navy Rucksack")
	weak := f.report(t, finderID, models.ReportFound, "Calculator")
	sameType := f.report(t, strangerID, models.ReportLost, "Blue Backpack")
	returned := f.report(t, finderID, models.ReportFound, "Blue Backpack")
	_, err := f.store.UpdateReport(ctx, returned.ID, func(r *models.Report) error {
		r.Status = models.StatusReturned
		return nil
	})
	require.NoError(t, err)

	f.setScore(lost.ID, strong.ID, 85)
	f.setScore(lost.ID, good.ID, 70)
	f.setScore(lost.ID, weak.ID, 59)
	f.setScore(lost.ID, sameType.ID, 99)
	f.setScore(lost.ID, returned.ID, 99)

	suggestions, err := f.engine.Propose(ctx, lost, allReports(t, f), nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, strong.ID, suggestions[0].Counterpart.ID)
	assert.Equal(t, 85, suggestions[0].Match.Confidence)
	assert.Equal(t, good.ID, suggestions[1].Counterpart.ID)
	assert.Equal(t, 70, suggestions[1].Match.Confidence)

	m := suggestions[0].Match
	assert.Equal(t, lost.ID, m.LostReportID)
	assert.Equal(t, strong.ID, m.FoundReportID)
	assert.Equal(t, models.MatchPending, m.Status)
	assert.Zero(t, m.Attempts)

	stored, err := f.store.ListMatches(ctx, store.MatchFilter{CampusID: testCampus})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestProposeAssignsRolesByReportType(t *testing.T) {
	f := newFixture(t)
	lost := f.report(t, ownerID, models.ReportLost, "Keys")
	found := f.report(t, finderID, models.ReportFound, "Keys")
	f.setScore(found.ID, lost.ID, 90)

	suggestions, err := f.engine.Propose(context.Background(), found, allReports(t, f), nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, lost.ID, suggestions[0].Match.LostReportID)
	assert.Equal(t, found.ID, suggestions[0].Match.FoundReportID)
	assert.Equal(t, found.OwnerID, suggestions[0].Match.InitiatorID)
}

func TestProposeNeverDuplicatesActivePairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lost := f.report(t, ownerID, models.ReportLost, "Blue Backpack")
	found := f.report(t, finderID, models.ReportFound, "Blue Backpack")
	f.setScore(lost.ID, found.ID, 85)

	first, err := f.engine.Propose(ctx, lost, allReports(t, f), nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	existing, err := f.store.ListMatches(ctx, store.MatchFilter{ReportIDs: []string{lost.ID}})
	require.NoError(t, err)
	again, err := f.engine.Propose(ctx, lost, allReports(t, f), existing)
	require.NoError(t, err)
	assert.Empty(t, again)

	// Without the caller's view the store still refuses the duplicate.
	again, err = f.engine.Propose(ctx, found, allReports(t, f), nil)
	require.NoError(t, err)
	assert.Empty(t, again)

	stored, err := f.store.ListMatches(ctx, store.MatchFilter{CampusID: testCampus})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestProposeIgnoresRejectedPairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lost := f.report(t, ownerID, models.ReportLost, "Blue Backpack")
	found := f.report(t, finderID, models.ReportFound, "Blue Backpack")
	old := f.match(t, lost, found, 85)
	_, err := f.store.UpdateMatch(ctx, old.ID, func(m *models.Match) error {
		m.Status = models.MatchRejected
		return nil
	})
	require.NoError(t, err)
	f.setScore(lost.ID, found.ID, 85)

	existing, err := f.store.ListMatches(ctx, store.MatchFilter{ReportIDs: []string{lost.ID}})
	require.NoError(t, err)
	suggestions, err := f.engine.Propose(ctx, lost, allReports(t, f), existing)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.NotEqual(t, old.ID, suggestions[0].Match.ID)
}

func TestProposeScoreFailureSkipsOnlyThatCandidate(t *testing.T) {
	f := newFixture(t)
	lost := f.report(t, ownerID, models.ReportLost, "Blue Backpack")
	broken := f.report(t, finderID, models.ReportFound, "Blue Backpack")
	fine := f.report(t, finderID, models.ReportFound, "Blue Backpack")

	engine := NewMatchingEngine(oracle.Funcs{
		ScoreFn: func(_ context.Context, _, b *models.Report) (int, error) {
			if b.ID == broken.ID {
				return 95, errors.New("upstream timeout")
			}
			return 75, nil
		},
	}, f.store, 2)

	suggestions, err := engine.Propose(context.Background(), lost, allReports(t, f), nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, fine.ID, suggestions[0].Counterpart.ID)
}

func TestProposeSlowOracleIsBoundedByTimeout(t *testing.T) {
	f := newFixture(t)
	lost := f.report(t, ownerID, models.ReportLost, "Blue Backpack")
	slow := f.report(t, finderID, models.ReportFound, "Blue Backpack")
	quick := f.report(t, finderID, models.ReportFound, "Blue Backpack")

	o := oracle.NewResilient(oracle.Funcs{
		ScoreFn: func(ctx context.Context, _, b *models.Report) (int, error) {
			if b.ID == slow.ID {
				<-ctx.Done()
				return 0, ctx.Err()
			}
			return 80, nil
		},
	}, 50*time.Millisecond)

	start := time.Now()
	suggestions, err := NewMatchingEngine(o, f.store, 1).Propose(context.Background(), lost, allReports(t, f), nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, suggestions, 1)
	assert.Equal(t, quick.ID, suggestions[0].Counterpart.ID)
}
