package campus

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// GetCampusID extracts the campus_id from Fiber context locals.
func GetCampusID(c *fiber.Ctx) string {
	if id, ok := c.Locals("campus_id").(string); ok {
		return id
	}
	return ""
}

// GetUserID extracts the user id from JWT claims in context.
func GetUserID(c *fiber.Ctx) (string, error) {
	claims, err := claimsFrom(c)
	if err != nil {
		return "", err
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", errors.New("missing sub claim")
	}
	if _, err := uuid.Parse(sub); err != nil {
		return "", errors.New("malformed sub claim")
	}
	return sub, nil
}

// GetEmail returns the email claim, or "" when absent.
func GetEmail(c *fiber.Ctx) string {
	claims, err := claimsFrom(c)
	if err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

// ClaimedCampus returns the campus_id claim of an authenticated request.
func ClaimedCampus(c *fiber.Ctx) string {
	claims, err := claimsFrom(c)
	if err != nil {
		return ""
	}
	id, _ := claims["campus_id"].(string)
	return id
}

func claimsFrom(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return nil, errors.New("invalid token in context")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
