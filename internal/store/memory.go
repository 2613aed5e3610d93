package store

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/google/uuid"
)

// Memory is an indexed in-process store. Records are held by value and
// copied on the way in and out, so callers never share state with it.
type Memory struct {
	mu           sync.RWMutex
	users        map[string]models.User
	usersByEmail map[string]string
	challenges   map[string]models.LoginChallenge
	reports      map[string]models.Report
	matches      map[string]models.Match
	messages     map[string][]models.ChatMessage
	handovers    map[string]models.Handover
	now          func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:        make(map[string]models.User),
		usersByEmail: make(map[string]string),
		challenges:   make(map[string]models.LoginChallenge),
		reports:      make(map[string]models.Report),
		matches:      make(map[string]models.Match),
		messages:     make(map[string][]models.ChatMessage),
		handovers:    make(map[string]models.Handover),
		now:          time.Now,
	}
}

// WithClock replaces the clock used for record timestamps.
func (s *Memory) WithClock(now func() time.Time) *Memory {
	s.now = now
	return s
}

// applyUpdate runs fn against a copy of m[id] and stores the result.
// The caller holds the write lock.
func applyUpdate[T any](m map[string]T, id string, fn func(*T) error) (*T, error) {
	current, ok := m[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := current
	if err := fn(&next); err != nil {
		if errors.Is(err, ErrNoChange) {
			return &current, nil
		}
		return nil, err
	}
	m[id] = next
	return &next, nil
}

// --- Users ---

func (s *Memory) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	email := strings.ToLower(u.Email)
	if _, ok := s.usersByEmail[email]; ok {
		return ErrConflict
	}
	if _, ok := s.users[u.ID]; ok {
		return ErrConflict
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	s.usersByEmail[email] = u.ID
	return nil
}

func (s *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Memory) UpdateUser(_ context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return applyUpdate(s.users, id, func(u *models.User) error {
		if err := fn(u); err != nil {
			return err
		}
		u.ID = id
		u.UpdatedAt = s.now()
		return nil
	})
}

// --- Login challenges ---

func (s *Memory) PutChallenge(_ context.Context, c *models.LoginChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Email = strings.ToLower(c.Email)
	c.CreatedAt = s.now()
	s.challenges[c.Email] = *c
	return nil
}

func (s *Memory) UpdateChallenge(_ context.Context, email string, fn func(*models.LoginChallenge) error) (*models.LoginChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return applyUpdate(s.challenges, strings.ToLower(email), fn)
}

func (s *Memory) DeleteChallenge(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, strings.ToLower(email))
	return nil
}

// --- Reports ---

func (s *Memory) CreateReport(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, ok := s.reports[r.ID]; ok {
		return ErrConflict
	}
	now := s.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = models.StatusOpen
	}
	s.reports[r.ID] = *r
	return nil
}

func (s *Memory) GetReport(_ context.Context, id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *Memory) ListReports(_ context.Context, f ReportFilter) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Report, 0)
	for _, r := range s.reports {
		if f.CampusID != "" && r.CampusID != f.CampusID {
			continue
		}
		if f.OwnerID != "" && r.OwnerID != f.OwnerID {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Memory) UpdateReport(_ context.Context, id string, fn func(*models.Report) error) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return applyUpdate(s.reports, id, func(r *models.Report) error {
		if err := fn(r); err != nil {
			return err
		}
		r.ID = id
		r.UpdatedAt = s.now()
		return nil
	})
}

// --- Matches ---

// activePairTaken reports whether another active match occupies m's pair.
// The caller holds the lock.
func (s *Memory) activePairTaken(m *models.Match) bool {
	for _, other := range s.matches {
		if other.ID == m.ID || !other.Active() {
			continue
		}
		if other.SamePair(m) {
			return true
		}
	}
	return false
}

func (s *Memory) CreateMatch(_ context.Context, m *models.Match) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if _, ok := s.matches[m.ID]; ok {
		return ErrConflict
	}
	if m.Status == "" {
		m.Status = models.MatchPending
	}
	if m.Active() && s.activePairTaken(m) {
		return ErrDuplicateMatch
	}
	now := s.now()
	m.CreatedAt, m.UpdatedAt = now, now
	s.matches[m.ID] = *m
	return nil
}

func (s *Memory) GetMatch(_ context.Context, id string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *Memory) ListMatches(_ context.Context, f MatchFilter) ([]models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Match, 0)
	for _, m := range s.matches {
		if f.CampusID != "" && m.CampusID != f.CampusID {
			continue
		}
		if len(f.ReportIDs) > 0 || f.InitiatorID != "" {
			linked := slices.Contains(f.ReportIDs, m.LostReportID) || slices.Contains(f.ReportIDs, m.FoundReportID)
			if !linked && (f.InitiatorID == "" || m.InitiatorID != f.InitiatorID) {
				continue
			}
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Memory) UpdateMatch(_ context.Context, id string, fn func(*models.Match) error) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return applyUpdate(s.matches, id, func(m *models.Match) error {
		before := *m
		if err := fn(m); err != nil {
			return err
		}
		m.ID = id
		if err := m.Validate(); err != nil {
			return err
		}
		if pairChanged(&before, m) && m.Active() && s.activePairTaken(m) {
			return ErrDuplicateMatch
		}
		m.UpdatedAt = s.now()
		return nil
	})
}

// --- Messages ---

func (s *Memory) AppendMessage(_ context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[msg.MatchID]; !ok {
		return ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	want := msg.Timestamp
	if want.IsZero() {
		want = s.now()
	}
	log := s.messages[msg.MatchID]
	var last time.Time
	if n := len(log); n > 0 {
		last = log[n-1].Timestamp
	}
	msg.Timestamp = nextTimestamp(want, last)
	s.messages[msg.MatchID] = append(log, *msg)
	return nil
}

func (s *Memory) ListMessages(_ context.Context, matchID string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages[matchID]), nil
}

func (s *Memory) LatestMessageTimes(_ context.Context, matchIDs []string) (map[string]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]time.Time, len(matchIDs))
	for _, id := range matchIDs {
		if log := s.messages[id]; len(log) > 0 {
			out[id] = log[len(log)-1].Timestamp
		}
	}
	return out, nil
}

// --- Handovers ---

func (s *Memory) CreateHandover(_ context.Context, h *models.Handover) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[h.MatchID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.handovers[h.MatchID]; ok {
		return ErrHandoverExists
	}
	now := s.now()
	h.CreatedAt, h.UpdatedAt = now, now
	s.handovers[h.MatchID] = *h
	return nil
}

func (s *Memory) GetHandover(_ context.Context, matchID string) (*models.Handover, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handovers[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (s *Memory) UpdateHandover(_ context.Context, matchID string, fn func(*models.Handover) error) (*models.Handover, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return applyUpdate(s.handovers, matchID, func(h *models.Handover) error {
		if err := fn(h); err != nil {
			return err
		}
		h.MatchID = matchID
		h.UpdatedAt = s.now()
		return nil
	})
}

func (s *Memory) Ping(context.Context) error {
	return nil
}
