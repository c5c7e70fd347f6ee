package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/joinline/joinline/internal/waitlist"
)

// RegisterWaitlistRoutes wires the public join and status endpoints. The rate
// limiter guards join only; status is a cheap read.
func RegisterWaitlistRoutes(r fiber.Router, h *waitlist.Handler, joinLimiter fiber.Handler) {
	r.Post("/join", joinLimiter, h.Join)
	r.Get("/status", h.Status)
}
