package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/campus"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/oracle"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// reportBurstWindow coalesces report announcements per campus.
const reportBurstWindow = 5 * time.Second

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.UsesPostgres() && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Campus registry
	registry, err := campus.LoadFromFile(cfg.CampusesConfigPath)
	if err != nil {
		slog.Error("failed to load campus registry", "path", cfg.CampusesConfigPath, "error", err)
		os.Exit(1)
	}
	slog.Info("campus registry loaded", "campuses", len(registry.All()))

	// Store
	var (
		st           store.Store
		pgLogHandler *logging.PGHandler
		cleanupDone  = make(chan struct{})
	)
	if cfg.UsesPostgres() {
		if err := database.Connect(cfg); err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}

		// PostgreSQL log handler (ERROR+ async batch)
		pgLogHandler = logging.NewPGHandler(database.DB)
		slog.SetDefault(slog.New(logging.NewMultiHandler(logging.StdoutHandler(), pgLogHandler)))

		logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)
		st = store.NewGorm(database.DB)
	} else {
		slog.Warn("using in-memory store, data is lost on restart")
		st = store.NewMemory()
	}

	// Similarity oracle
	var inner oracle.Oracle = oracle.NewLexical()
	if cfg.GeminiAPIKey != "" {
		g, err := oracle.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, "a university campus")
		if err != nil {
			slog.Error("gemini init failed, falling back to lexical oracle", "error", err)
		} else {
			inner = g
			slog.Info("gemini oracle enabled", "model", cfg.GeminiModel)
		}
	}
	orc := oracle.NewResilient(inner, cfg.OracleTimeout)

	// Notification sink
	var (
		sink    notify.Sink = notify.Log{}
		webhook *notify.Webhook
	)
	if cfg.NotifyWebhookURL != "" {
		webhook = notify.NewWebhook(cfg.NotifyWebhookURL, cfg.NotifyQueueSize, 10*time.Second)
		sink = webhook
	}

	// Services
	filter := services.NewContentFilter()
	notifier := services.NewNotifier(st, sink)
	burst := notify.NewBurst(sink, reportBurstWindow)
	engine := services.NewMatchingEngine(orc, st, cfg.MatchConcurrency)
	chatService := services.NewChatService(st, filter)
	verificationService := services.NewVerificationService(st, orc, chatService, notifier)
	handoverService := services.NewHandoverService(st, chatService, notifier)
	matchService := services.NewMatchService(st, chatService, notifier, registry)
	reportService := services.NewReportService(st, orc, engine, filter, notifier, burst, registry)
	authService := services.NewAuthService(st, cfg, registry)

	// Handlers
	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService),
		Health:   handlers.NewHealthHandler(st, registry),
		Report:   handlers.NewReportHandler(reportService, matchService),
		Match:    handlers.NewMatchHandler(matchService, verificationService, chatService),
		Handover: handlers.NewHandoverHandler(handoverService),
	}

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, st, registry, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if webhook != nil {
		webhook.Close()
	}
	close(cleanupDone)
	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
