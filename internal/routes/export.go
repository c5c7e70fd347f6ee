package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/joinline/joinline/internal/export"
)

// RegisterExportRoutes wires the admin CSV export endpoint.
func RegisterExportRoutes(r fiber.Router, h *export.Handler) {
	r.Get("/export", h.Export)
}
