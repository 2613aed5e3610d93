package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired admits a request that:
// 1. carries the configured X-Admin-Token
// 2. belongs to a user listed in ADMIN_EMAILS
// 3. belongs to a user whose stored role is admin
func AdminRequired(st store.Store, cfg *config.Config) fiber.Handler {
	adminEmails := emailSet(cfg.AdminEmails)

	return func(c *fiber.Ctx) error {
		if hasAdminToken(c, cfg) {
			return c.Next()
		}

		userID, err := campus.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if _, ok := adminEmails[strings.ToLower(campus.GetEmail(c))]; ok {
			return c.Next()
		}

		user, err := st.GetUser(c.UserContext(), userID)
		if err == nil && user.Role == models.RoleAdmin {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

// emailSet parses a comma separated ADMIN_EMAILS value.
func emailSet(csv string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, e := range strings.Split(csv, ",") {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}
