package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/oracle"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
	"golang.org/x/sync/errgroup"
)

// MatchThreshold is the lowest oracle score that produces a match.
const MatchThreshold = 60

// Suggestion is a newly created match offered to the submitter.
type Suggestion struct {
	Match       models.Match
	Counterpart models.Report
}

// MatchingEngine proposes matches for a new report by scoring it against the
// open reports of the opposite type.
type MatchingEngine struct {
	oracle      oracle.Oracle
	store       store.Store
	concurrency int
}

func NewMatchingEngine(o oracle.Oracle, st store.Store, concurrency int) *MatchingEngine {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &MatchingEngine{oracle: o, store: st, concurrency: concurrency}
}

// Propose scores newReport against every candidate in all and persists a
// PENDING match for each candidate at or above MatchThreshold that is not
// already linked by an active match. A failed score counts as 0.
func (e *MatchingEngine) Propose(ctx context.Context, newReport *models.Report, all []models.Report, existing []models.Match) ([]Suggestion, error) {
	want := newReport.Type.Opposite()
	candidates := make([]models.Report, 0, len(all))
	for _, r := range all {
		if r.Type == want && r.Status == models.StatusOpen && r.ID != newReport.ID {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	scores := make([]int, len(candidates))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range candidates {
		g.Go(func() error {
			score, err := e.oracle.Score(ctx, newReport, &candidates[i])
			if err != nil {
				slog.Warn("similarity score failed", "report_id", newReport.ID, "candidate_id", candidates[i].ID, "error", err)
				score = 0
			}
			scores[i] = score
			return nil
		})
	}
	_ = g.Wait()

	var suggestions []Suggestion
	for i, candidate := range candidates {
		if scores[i] < MatchThreshold {
			continue
		}
		if linked(existing, newReport.ID, candidate.ID) {
			continue
		}

		m := models.Match{
			CampusID:    newReport.CampusID,
			InitiatorID: newReport.OwnerID,
			Confidence:  scores[i],
			Status:      models.MatchPending,
		}
		if newReport.Type == models.ReportLost {
			m.LostReportID, m.FoundReportID = newReport.ID, candidate.ID
		} else {
			m.LostReportID, m.FoundReportID = candidate.ID, newReport.ID
		}

		if err := e.store.CreateMatch(ctx, &m); err != nil {
			if errors.Is(err, store.ErrDuplicateMatch) {
				slog.Debug("match already exists", "report_id", newReport.ID, "candidate_id", candidate.ID)
				continue
			}
			return suggestions, fmt.Errorf("failed to persist match: %w", err)
		}
		slog.Info("match proposed", "match_id", m.ID, "report_id", newReport.ID, "candidate_id", candidate.ID, "confidence", m.Confidence)
		suggestions = append(suggestions, Suggestion{Match: m, Counterpart: candidate})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Match.Confidence > suggestions[j].Match.Confidence
	})
	return suggestions, nil
}

func linked(matches []models.Match, a, b string) bool {
	for i := range matches {
		if matches[i].Active() && matches[i].Links(a, b) {
			return true
		}
	}
	return false
}
