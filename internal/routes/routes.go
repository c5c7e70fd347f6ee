package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/joinline/joinline/internal/captcha"
	"github.com/joinline/joinline/internal/config"
	"github.com/joinline/joinline/internal/export"
	"github.com/joinline/joinline/internal/middleware"
	"github.com/joinline/joinline/internal/waitlist"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Redis is the
// preferred store backend, Postgres the durable alternative; the in-memory
// store only backs development mode.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() && d.DB == nil && d.Cache == nil {
		return fmt.Errorf("a redis or postgres store is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var store waitlist.Store
	switch {
	case d.Cache != nil:
		store = waitlist.NewRedisStore(d.Cache)
	case d.DB != nil:
		store = waitlist.NewPostgresStore(d.DB)
	default:
		store = waitlist.NewMemoryStore()
	}

	service := waitlist.NewService(store, d.Logger)
	verifier := captcha.NewTurnstile(d.Cfg.TurnstileSecret, d.Logger)
	waitlistHandler := waitlist.NewHandler(service, verifier, d.Logger)
	exportHandler := export.NewHandler(service, d.Cfg.AdminSecret, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	joinLimiter := middleware.JoinRateLimit(d.Cache, d.Cfg.JoinRateLimit, d.Cfg.JoinRateWindow)
	RegisterWaitlistRoutes(api, waitlistHandler, joinLimiter)
	RegisterExportRoutes(api, exportHandler)

	return nil
}
