package middleware

import (
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// CampusMiddleware resolves the campus of a request and stores it in
// locals. Authenticated requests are bound to the campus_id claim of their
// token; token-less admin requests name the campus in X-Campus-ID.
func CampusMiddleware(registry *campus.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := campus.ClaimedCampus(c); id != "" {
			if !registry.Exists(id) {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
					Error:   true,
					Message: "Unknown campus in token",
				})
			}
			c.Locals("campus_id", id)
			return c.Next()
		}

		id := c.Get("X-Campus-ID")
		if id == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "X-Campus-ID header is required",
			})
		}
		if !registry.Exists(id) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Invalid X-Campus-ID: " + id,
			})
		}
		c.Locals("campus_id", id)
		return c.Next()
	}
}
