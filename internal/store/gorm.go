package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm persists to Postgres. Updates lock the target row with
// SELECT ... FOR UPDATE inside a transaction.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockedUpdate loads the row matching column = key under a row lock, applies
// fn and saves the result in the same transaction.
func lockedUpdate[T any](ctx context.Context, db *gorm.DB, column, key string, fn func(tx *gorm.DB, v *T) error) (*T, error) {
	var out T
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where(column+" = ?", key).First(&out).Error; err != nil {
			return notFound(err)
		}
		if err := fn(tx, &out); err != nil {
			return err
		}
		return tx.Save(&out).Error
	})
	if errors.Is(err, ErrNoChange) {
		var current T
		if err := db.WithContext(ctx).Where(column+" = ?", key).First(&current).Error; err != nil {
			return nil, notFound(err)
		}
		return &current, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Users ---

func (s *Gorm) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(u.Email)
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrConflict
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Gorm) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Gorm) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Gorm) UpdateUser(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	return lockedUpdate(ctx, s.db, "id", id, func(_ *gorm.DB, u *models.User) error {
		if err := fn(u); err != nil {
			return err
		}
		u.ID = id
		return nil
	})
}

// --- Login challenges ---

func (s *Gorm) PutChallenge(ctx context.Context, c *models.LoginChallenge) error {
	c.Email = strings.ToLower(c.Email)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(c).Error
}

func (s *Gorm) UpdateChallenge(ctx context.Context, email string, fn func(*models.LoginChallenge) error) (*models.LoginChallenge, error) {
	return lockedUpdate(ctx, s.db, "email", strings.ToLower(email), func(_ *gorm.DB, c *models.LoginChallenge) error {
		return fn(c)
	})
}

func (s *Gorm) DeleteChallenge(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).Delete(&models.LoginChallenge{}).Error
}

// --- Reports ---

func (s *Gorm) CreateReport(ctx context.Context, r *models.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = models.StatusOpen
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (s *Gorm) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var r models.Report
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *Gorm) ListReports(ctx context.Context, f ReportFilter) ([]models.Report, error) {
	query := s.db.WithContext(ctx).Model(&models.Report{}).Scopes(campus.ForCampus(f.CampusID))
	if f.OwnerID != "" {
		query = query.Where("owner_id = ?", f.OwnerID)
	}
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	var reports []models.Report
	if err := query.Order("created_at DESC, id ASC").Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Gorm) UpdateReport(ctx context.Context, id string, fn func(*models.Report) error) (*models.Report, error) {
	return lockedUpdate(ctx, s.db, "id", id, func(_ *gorm.DB, r *models.Report) error {
		if err := fn(r); err != nil {
			return err
		}
		r.ID = id
		return nil
	})
}

// --- Matches ---

// lockPair serializes writers of m's pair by locking its concrete reports.
func lockPair(tx *gorm.DB, m *models.Match) error {
	ids := m.ReportIDs()
	if len(ids) == 0 {
		return models.ErrInvalidMatch
	}
	var locked []models.Report
	return forUpdate(tx).Where("id IN ?", ids).Order("id").Find(&locked).Error
}

func activePairTaken(tx *gorm.DB, m *models.Match) (bool, error) {
	query := tx.Model(&models.Match{}).
		Where("status <> ?", models.MatchRejected).
		Where("((lost_report_id = ? AND found_report_id = ?) OR (lost_report_id = ? AND found_report_id = ?))",
			m.LostReportID, m.FoundReportID, m.FoundReportID, m.LostReportID)
	if m.ID != "" {
		query = query.Where("id <> ?", m.ID)
	}
	if m.HasPlaceholder() {
		query = query.Where("initiator_id = ?", m.InitiatorID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Gorm) CreateMatch(ctx context.Context, m *models.Match) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.Status == "" {
		m.Status = models.MatchPending
	}
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, m); err != nil {
			return err
		}
		if m.Active() {
			m.ID = ""
			taken, err := activePairTaken(tx, m)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicateMatch
			}
		}
		m.ID = id
		return tx.Create(m).Error
	})
}

func (s *Gorm) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	var m models.Match
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *Gorm) ListMatches(ctx context.Context, f MatchFilter) ([]models.Match, error) {
	query := s.db.WithContext(ctx).Model(&models.Match{}).Scopes(campus.ForCampus(f.CampusID))
	switch {
	case len(f.ReportIDs) > 0 && f.InitiatorID != "":
		query = query.Where("(lost_report_id IN ? OR found_report_id IN ? OR initiator_id = ?)", f.ReportIDs, f.ReportIDs, f.InitiatorID)
	case len(f.ReportIDs) > 0:
		query = query.Where("(lost_report_id IN ? OR found_report_id IN ?)", f.ReportIDs, f.ReportIDs)
	case f.InitiatorID != "":
		query = query.Where("initiator_id = ?", f.InitiatorID)
	}
	var matches []models.Match
	if err := query.Order("created_at ASC, id ASC").Find(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *Gorm) UpdateMatch(ctx context.Context, id string, fn func(*models.Match) error) (*models.Match, error) {
	return lockedUpdate(ctx, s.db, "id", id, func(tx *gorm.DB, m *models.Match) error {
		before := *m
		if err := fn(m); err != nil {
			return err
		}
		m.ID = id
		if err := m.Validate(); err != nil {
			return err
		}
		if pairChanged(&before, m) && m.Active() {
			if err := lockPair(tx, m); err != nil {
				return err
			}
			taken, err := activePairTaken(tx, m)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicateMatch
			}
		}
		return nil
	})
}

// --- Messages ---

func (s *Gorm) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	want := msg.Timestamp
	if want.IsZero() {
		want = time.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Match
		if err := forUpdate(tx).Select("id").First(&m, "id = ?", msg.MatchID).Error; err != nil {
			return notFound(err)
		}
		var last models.ChatMessage
		err := tx.Where("match_id = ?", msg.MatchID).Order("timestamp DESC").Limit(1).Find(&last).Error
		if err != nil {
			return err
		}
		msg.Timestamp = nextTimestamp(want, last.Timestamp)
		return tx.Create(msg).Error
	})
}

func (s *Gorm) ListMessages(ctx context.Context, matchID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	if err := s.db.WithContext(ctx).Where("match_id = ?", matchID).Order("timestamp ASC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Gorm) LatestMessageTimes(ctx context.Context, matchIDs []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		MatchID string
		Latest  time.Time
	}
	err := s.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Select("match_id, MAX(timestamp) AS latest").
		Where("match_id IN ?", matchIDs).
		Group("match_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.MatchID] = row.Latest
	}
	return out, nil
}

// --- Handovers ---

func (s *Gorm) CreateHandover(ctx context.Context, h *models.Handover) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Match
		if err := forUpdate(tx).Select("id").First(&m, "id = ?", h.MatchID).Error; err != nil {
			return notFound(err)
		}
		var count int64
		if err := tx.Model(&models.Handover{}).Where("match_id = ?", h.MatchID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrHandoverExists
		}
		return tx.Create(h).Error
	})
}

func (s *Gorm) GetHandover(ctx context.Context, matchID string) (*models.Handover, error) {
	var h models.Handover
	if err := s.db.WithContext(ctx).First(&h, "match_id = ?", matchID).Error; err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

func (s *Gorm) UpdateHandover(ctx context.Context, matchID string, fn func(*models.Handover) error) (*models.Handover, error) {
	return lockedUpdate(ctx, s.db, "match_id", matchID, func(_ *gorm.DB, h *models.Handover) error {
		if err := fn(h); err != nil {
			return err
		}
		h.MatchID = matchID
		return nil
	})
}

func (s *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
