package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// maxCodeAttempts bounds referral code regeneration on collision. With a
// 36^8 code space collisions are vanishingly rare; exhausting the budget is
// surfaced as an internal error rather than committing a duplicate code.
const maxCodeAttempts = 5

// Service orchestrates registrations: it generates referral codes, retries
// collisions with a fresh code, and delegates the atomic work to the Store.
type Service struct {
	store  Store
	gen    CodeGenerator
	logger *slog.Logger
}

// NewService builds a waitlist service on top of the given store.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, gen: NewRefCode, logger: logger}
}

// Join registers email on the project waitlist, crediting the owner of
// referrerCode when it resolves. Duplicate emails return ErrAlreadyJoined with
// the existing code in the result.
func (s *Service) Join(ctx context.Context, project, email, referrerCode string) (JoinResult, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.gen()
		if err != nil {
			return JoinResult{}, fmt.Errorf("generate referral code: %w", err)
		}

		res, err := s.store.Join(ctx, project, Registration{
			Email:        email,
			RefCode:      code,
			ReferrerCode: referrerCode,
			CreatedAt:    time.Now().UTC(),
		})
		if errors.Is(err, ErrCodeTaken) {
			s.logger.Warn("referral code collision", "project", project, "attempt", attempt)
			continue
		}
		return res, err
	}
	return JoinResult{}, fmt.Errorf("referral code collisions exhausted after %d attempts", maxCodeAttempts)
}

// Status reports the member's current rank.
func (s *Service) Status(ctx context.Context, project, email string) (Status, error) {
	return s.store.Status(ctx, project, email)
}

// List enumerates all members of a project in rank order.
func (s *Service) List(ctx context.Context, project string) ([]Member, error) {
	return s.store.List(ctx, project)
}
