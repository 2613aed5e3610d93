package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
	"github.com/gofiber/fiber/v2"
)

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// session builds the caller identity from the JWT and the resolved campus.
func session(c *fiber.Ctx) (services.Session, error) {
	userID, err := campus.GetUserID(c)
	if err != nil {
		return services.Session{}, err
	}
	return services.Session{UserID: userID, CampusID: campus.GetCampusID(c)}, nil
}

func unauthorized(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
}

func badBody(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
}

// serviceError maps service and store errors to HTTP statuses. Unknown
// errors are logged and hidden behind a 500.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidReport),
		errors.Is(err, services.ErrContentRejected),
		errors.Is(err, services.ErrEmptyAnswer),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrOwnReport),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrNameRequired),
		errors.Is(err, models.ErrInvalidMatch):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCode):
		return errorJSON(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrNotParticipant):
		return errorJSON(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrUserNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrReportClosed),
		errors.Is(err, services.ErrReportReturned),
		errors.Is(err, services.ErrAttachNotAllowed),
		errors.Is(err, services.ErrHandoverNotAllowed),
		errors.Is(err, services.ErrVerificationUnavailable),
		errors.Is(err, store.ErrDuplicateMatch),
		errors.Is(err, store.ErrConflict):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrTooManyAttempts):
		return errorJSON(c, fiber.StatusTooManyRequests, err.Error())
	}
	slog.Error("request failed",
		"method", c.Method(),
		"path", c.Path(),
		"campus_id", campus.GetCampusID(c),
		"error", err,
	)
	return errorJSON(c, fiber.StatusInternalServerError, "Internal server error")
}
