package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
)

type RequestCodeRequest struct {
	Email string `json:"email"`
}

type RequestCodeResponse struct {
	Message   string `json:"message"`
	CampusID  string `json:"campus_id"`
	ExpiresIn int    `json:"expires_in"`
	IsNewUser bool   `json:"is_new_user"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Name  string `json:"name,omitempty"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int          `json:"expires_in"`
	User        UserResponse `json:"user"`
}

type UserResponse struct {
	ID                string    `json:"id"`
	CampusID          string    `json:"campus_id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	IsVerified        bool      `json:"is_verified"`
	MuteNotifications bool      `json:"mute_notifications"`
	Role              string    `json:"role"`
	CreatedAt         time.Time `json:"created_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		CampusID:          u.CampusID,
		Name:              u.Name,
		Email:             u.Email,
		IsVerified:        u.IsVerified,
		MuteNotifications: u.MuteNotifications,
		Role:              u.Role,
		CreatedAt:         u.CreatedAt,
	}
}

type UpdatePreferencesRequest struct {
	MuteNotifications *bool   `json:"mute_notifications"`
	Name              *string `json:"name"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	DB          string `json:"db"`
	CampusCount int    `json:"campus_count"`
}
