package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidEmail    = errors.New("use your campus email address")
	ErrInvalidCode     = errors.New("invalid or expired login code")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
	ErrNameRequired    = errors.New("name is required on first login")
	ErrUserNotFound    = errors.New("user not found")
)

// MaxLoginAttempts bounds code guesses per challenge.
const MaxLoginAttempts = 5

// randomLoginCode makes RequestCode issue random codes instead of the dev code.
const randomLoginCode = "random"

// AuthService issues simulated one-time login codes for campus email
// addresses and exchanges them for access tokens.
type AuthService struct {
	store    store.Store
	cfg      *config.Config
	campuses *campus.Registry
	now      func() time.Time
}

func NewAuthService(st store.Store, cfg *config.Config, campuses *campus.Registry) *AuthService {
	return &AuthService{store: st, cfg: cfg, campuses: campuses, now: time.Now}
}

// WithClock replaces the clock; used by tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) RequestCode(ctx context.Context, req *dto.RequestCodeRequest) (*dto.RequestCodeResponse, error) {
	email := normalizeEmail(req.Email)
	c, ok := s.campuses.ByEmail(email)
	if !ok {
		return nil, ErrInvalidEmail
	}

	code, err := s.loginCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash login code: %w", err)
	}

	challenge := &models.LoginChallenge{
		Email:     email,
		CampusID:  c.ID,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(s.cfg.LoginCodeTTL),
	}
	if err := s.store.PutChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store login challenge: %w", err)
	}
	slog.Debug("login code issued", "email", email, "campus_id", c.ID, "code", code)

	_, err = s.store.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return &dto.RequestCodeResponse{
		Message:   "A login code has been sent to " + email,
		CampusID:  c.ID,
		ExpiresIn: int(s.cfg.LoginCodeTTL.Seconds()),
		IsNewUser: errors.Is(err, store.ErrNotFound),
	}, nil
}

func (s *AuthService) VerifyCode(ctx context.Context, req *dto.VerifyCodeRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	// Every guess spends an attempt before the hash is compared, so the
	// bcrypt work happens outside the store's critical section.
	challenge, err := s.store.UpdateChallenge(ctx, email, func(c *models.LoginChallenge) error {
		if c.Expired(s.now()) {
			return ErrInvalidCode
		}
		if c.Attempts >= MaxLoginAttempts {
			return ErrTooManyAttempts
		}
		c.Attempts++
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(strings.TrimSpace(req.Code))); err != nil {
		return nil, ErrInvalidCode
	}
	if err := s.store.DeleteChallenge(ctx, email); err != nil {
		slog.Warn("failed to delete login challenge", "email", email, "error", err)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		name := strings.TrimSpace(req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		user = &models.User{
			CampusID:   challenge.CampusID,
			Name:       name,
			Email:      email,
			IsVerified: true,
			Role:       models.RoleUser,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		slog.Info("user registered", "user_id", user.ID, "campus_id", user.CampusID)
	case err != nil:
		return nil, err
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken: token,
		ExpiresIn:   int(s.cfg.JWTAccessExpiry.Seconds()),
		User:        dto.NewUserResponse(user),
	}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AuthService) UpdatePreferences(ctx context.Context, userID string, req *dto.UpdatePreferencesRequest) (*models.User, error) {
	u, err := s.store.UpdateUser(ctx, userID, func(u *models.User) error {
		changed := false
		if req.MuteNotifications != nil && *req.MuteNotifications != u.MuteNotifications {
			u.MuteNotifications = *req.MuteNotifications
			changed = true
		}
		if req.Name != nil {
			if name := strings.TrimSpace(*req.Name); name != "" && name != u.Name {
				u.Name = name
				changed = true
			}
		}
		if !changed {
			return store.ErrNoChange
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":       user.ID,
		"email":     user.Email,
		"campus_id": user.CampusID,
		"iat":       now.Unix(),
		"exp":       now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) loginCode() (string, error) {
	if code := s.cfg.LoginDevCode; code != "" && code != randomLoginCode {
		return code, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate login code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
