package waitlist

import (
	"errors"
	"time"
)

var (
	// ErrAlreadyJoined indicates the email is already registered for the project.
	// Stores return it together with a JoinResult carrying the existing referral code.
	ErrAlreadyJoined = errors.New("email already joined")

	// ErrNotFound indicates the project has no member with the requested email.
	ErrNotFound = errors.New("member not found")

	// ErrCodeTaken indicates the referral code generated for a registration already
	// belongs to another member. The service retries with a fresh code.
	ErrCodeTaken = errors.New("referral code taken")
)

// Member is one registered participant of a project waitlist.
type Member struct {
	Email      string
	RefCode    string
	ReferredBy string
	Score      int64
	CreatedAt  time.Time
}

// Registration carries the data for one registration attempt. RefCode is
// pre-generated by the caller; ReferrerCode may be empty or unknown, an
// unknown code is ignored rather than rejected.
type Registration struct {
	Email        string
	RefCode      string
	ReferrerCode string
	CreatedAt    time.Time
}

// JoinResult captures the outcome of a committed registration. Rank and Total
// are computed against the post-commit state.
type JoinResult struct {
	RefCode string
	Rank    int64
	Total   int64
}

// Status is a point-in-time rank report for one member.
type Status struct {
	Rank    int64
	Total   int64
	AheadOf int64
	RefCode string
	Score   int64
}

// millisToTime converts the unix-millisecond creation timestamps the stores
// persist back to time.Time.
func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
