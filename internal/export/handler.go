// Package export serves the per-project member listing as CSV for offline
// reporting. It reads committed state only and is not part of the
// registration consistency contract.
package export

import (
	"bytes"
	"crypto/subtle"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/joinline/joinline/internal/waitlist"
)

// Handler exposes the admin export endpoint.
type Handler struct {
	service     *waitlist.Service
	adminSecret string
	logger      *slog.Logger
}

// NewHandler builds the export handler. adminSecret guards the endpoint; when
// it is empty every request is rejected.
func NewHandler(service *waitlist.Service, adminSecret string, logger *slog.Logger) *Handler {
	return &Handler{service: service, adminSecret: adminSecret, logger: logger}
}

// Export handles GET /export, streaming the project membership as CSV ordered
// by rank.
func (h *Handler) Export(c *fiber.Ctx) error {
	if !h.authorized(c.Get(fiber.HeaderAuthorization)) {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "UNAUTHORIZED"})
	}

	projectID := c.Query("projectId")
	if projectID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "MISSING_PROJECT_ID"})
	}

	members, err := h.service.List(c.UserContext(), projectID)
	if err != nil {
		h.logger.Error("export failed", "project", projectID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "INTERNAL_ERROR"})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"email", "ref_code", "referred_by", "referral_count", "created_at", "rank"})
	for i, m := range members {
		_ = w.Write([]string{
			m.Email,
			m.RefCode,
			m.ReferredBy,
			strconv.FormatInt(m.Score, 10),
			strconv.FormatInt(m.CreatedAt.UnixMilli(), 10),
			strconv.Itoa(i + 1),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "INTERNAL_ERROR"})
	}

	filename := fmt.Sprintf("waitlist-%s-%d.csv", projectID, time.Now().UnixMilli())
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

func (h *Handler) authorized(header string) bool {
	if h.adminSecret == "" {
		return false
	}
	expected := "Bearer " + h.adminSecret
	return subtle.ConstantTimeCompare([]byte(header), []byte(expected)) == 1
}
