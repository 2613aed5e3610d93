package handlers

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type HandoverHandler struct {
	handoverService *services.HandoverService
}

func NewHandoverHandler(handoverService *services.HandoverService) *HandoverHandler {
	return &HandoverHandler{handoverService: handoverService}
}

func (h *HandoverHandler) Initiate(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	view, err := h.handoverService.Initiate(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(handoverResponse(view))
}

func (h *HandoverHandler) Get(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	view, err := h.handoverService.View(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(handoverResponse(view))
}

// Confirm records one side of the exchange. A wrong code answers 200 with
// accepted=false.
func (h *HandoverHandler) Confirm(c *fiber.Ctx) error {
	sess, err := session(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ConfirmHandoverRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	role := models.HandoverRole(strings.ToUpper(strings.TrimSpace(req.Role)))

	res, err := h.handoverService.Confirm(c.UserContext(), sess, c.Params("id"), role, req.Code)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(dto.ConfirmHandoverResponse{
		Accepted:            res.Accepted,
		Closed:              res.Closed,
		IsConfirmedByOwner:  res.Handover.IsConfirmedByOwner,
		IsConfirmedByFinder: res.Handover.IsConfirmedByFinder,
	})
}

func handoverResponse(v *services.HandoverView) dto.HandoverResponse {
	return dto.HandoverResponse{
		MatchID:             v.Handover.MatchID,
		Role:                string(v.Role),
		Code:                v.Code,
		IsConfirmedByOwner:  v.Handover.IsConfirmedByOwner,
		IsConfirmedByFinder: v.Handover.IsConfirmedByFinder,
		CreatedAt:           v.Handover.CreatedAt,
	}
}
