package middleware

import (
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtConfig(cfg))
}

// AdminJWT is JWTProtected, except that requests carrying the configured
// admin token skip token parsing.
func AdminJWT(cfg *config.Config) fiber.Handler {
	jc := jwtConfig(cfg)
	jc.Filter = func(c *fiber.Ctx) bool {
		return hasAdminToken(c, cfg)
	}
	return jwtware.New(jc)
}

func jwtConfig(cfg *config.Config) jwtware.Config {
	return jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	}
}

func hasAdminToken(c *fiber.Ctx, cfg *config.Config) bool {
	return cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken
}
