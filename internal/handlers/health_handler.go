package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	store    store.Store
	registry *campus.Registry
}

func NewHealthHandler(st store.Store, registry *campus.Registry) *HealthHandler {
	return &HealthHandler{store: st, registry: registry}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.store.Ping(c.UserContext()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		DB:          dbStatus,
		CampusCount: len(h.registry.All()),
	})
}

// Campuses lists the registered campuses for the sign-in screen.
func (h *HealthHandler) Campuses(c *fiber.Ctx) error {
	all := h.registry.All()
	data := make([]fiber.Map, len(all))
	for i, cp := range all {
		data[i] = fiber.Map{
			"id":           cp.ID,
			"name":         cp.Name,
			"email_domain": cp.EmailDomain,
			"locations":    cp.Locations,
		}
	}
	return c.JSON(fiber.Map{"data": data, "total": len(data)})
}
