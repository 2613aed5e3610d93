package handlers

import (
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RequestCode(c *fiber.Ctx) error {
	var req dto.RequestCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.RequestCode(c.UserContext(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req dto.VerifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.VerifyCode(c.UserContext(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := campus.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	user, err := h.authService.Me(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	userID, err := campus.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := h.authService.UpdatePreferences(c.UserContext(), userID, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.NewUserResponse(user))
}
