package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Health   *handlers.HealthHandler
	Report   *handlers.ReportHandler
	Match    *handlers.MatchHandler
	Handover *handlers.HandoverHandler
}

func Setup(
	app *fiber.App,
	cfg *config.Config,
	st store.Store,
	registry *campus.Registry,
	h Handlers,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)
	api.Get("/campuses", h.Health.Campuses)

	// Auth: stricter limit, 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/code", h.Auth.RequestCode)
	auth.Post("/verify", h.Auth.VerifyCode)

	// Each protected prefix gets its own group so the JWT middleware never
	// runs on the public routes above.
	protected := []fiber.Handler{middleware.JWTProtected(cfg), middleware.CampusMiddleware(registry)}

	me := api.Group("/me", protected...)
	me.Get("/", h.Auth.Me)
	me.Patch("/", h.Auth.UpdateMe)
	me.Get("/reports", h.Report.Mine)
	me.Get("/matches", h.Match.Active)

	reports := api.Group("/reports", protected...)
	reports.Post("/", h.Report.Create)
	reports.Get("/", h.Report.List)
	reports.Get("/:id", h.Report.Get)
	reports.Post("/:id/chat", h.Report.StartChat)

	matches := api.Group("/matches", protected...)
	matches.Post("/dismiss", h.Match.Dismiss)
	matches.Get("/:id", h.Match.Get)
	matches.Post("/:id/claim", h.Match.Claim)
	matches.Post("/:id/attach", h.Match.Attach)
	matches.Post("/:id/verify", h.Match.Verify)
	matches.Get("/:id/messages", h.Match.Messages)
	matches.Post("/:id/messages", h.Match.SendMessage)
	matches.Get("/:id/handover", h.Handover.Get)
	matches.Post("/:id/handover", h.Handover.Initiate)
	matches.Post("/:id/handover/confirm", h.Handover.Confirm)

	// Admin: JWT or X-Admin-Token, then campus, then the admin check.
	admin := api.Group("/admin",
		middleware.AdminJWT(cfg),
		middleware.CampusMiddleware(registry),
		middleware.AdminRequired(st, cfg),
	)
	admin.Put("/reports/:id/close", h.Report.Close)
}
