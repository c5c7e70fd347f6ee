package waitlist

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/joinline/joinline/internal/captcha"
	"github.com/joinline/joinline/internal/validate"
)

// Handler exposes the join and status endpoints. Input validation and CAPTCHA
// verification happen here, before the registration transaction is entered.
type Handler struct {
	service *Service
	captcha captcha.Verifier
	logger  *slog.Logger
}

// NewHandler builds the waitlist HTTP handler.
func NewHandler(service *Service, verifier captcha.Verifier, logger *slog.Logger) *Handler {
	return &Handler{service: service, captcha: verifier, logger: logger}
}

// Join handles POST /join.
func (h *Handler) Join(c *fiber.Ctx) error {
	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "MISSING_FIELDS"})
	}
	if req.Email == "" || req.ProjectID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "MISSING_FIELDS"})
	}
	if !validate.IsValidEmail(req.Email) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "INVALID_EMAIL"})
	}
	if validate.IsDisposableEmail(req.Email) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "DISPOSABLE_EMAIL"})
	}

	if err := h.captcha.Verify(c.UserContext(), req.TurnstileToken, c.IP()); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":   "INVALID_CAPTCHA",
			"details": err.Error(),
		})
	}

	res, err := h.service.Join(c.UserContext(), req.ProjectID, req.Email, req.ReferrerCode)
	if errors.Is(err, ErrAlreadyJoined) {
		return c.Status(http.StatusOK).JSON(alreadyJoinedResponse{
			Error:        "ALREADY_JOINED",
			ExistingUser: existingUser{RefCode: res.RefCode},
		})
	}
	if err != nil {
		h.logger.Error("join failed", "project", req.ProjectID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "INTERNAL_ERROR"})
	}

	return c.Status(http.StatusOK).JSON(joinResponse{
		Success:  true,
		RefCode:  res.RefCode,
		Rank:     res.Rank,
		Total:    res.Total,
		ShareURL: "?ref=" + res.RefCode,
	})
}

// Status handles GET /status.
func (h *Handler) Status(c *fiber.Ctx) error {
	email := c.Query("email")
	projectID := c.Query("projectId")
	if email == "" || projectID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "MISSING_PARAMS"})
	}

	st, err := h.service.Status(c.UserContext(), projectID, email)
	if errors.Is(err, ErrNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"success": false, "error": "NOT_FOUND"})
	}
	if err != nil {
		h.logger.Error("status failed", "project", projectID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "INTERNAL_ERROR"})
	}

	return c.Status(http.StatusOK).JSON(statusResponse{
		Success:       true,
		Rank:          st.Rank,
		Total:         st.Total,
		AheadOf:       st.AheadOf,
		RefCode:       st.RefCode,
		ReferralCount: st.Score,
		ShareURL:      "?ref=" + st.RefCode,
	})
}
