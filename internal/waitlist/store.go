package waitlist

import "context"

// Store persists waitlist state per project. Implementations must make Join a
// single atomic unit: two concurrent joins for the same email yield exactly one
// success, referral credits never lose updates, and no partial state (orphan
// code, credited score without a member) is ever visible to readers.
//
// Members rank by (score desc, creation order asc). Every backend assigns a
// monotonically increasing sequence number at creation to break score ties.
type Store interface {
	// Join registers a new member. It returns ErrAlreadyJoined (with the
	// existing referral code in the result) when the email is taken, and
	// ErrCodeTaken when reg.RefCode collides with an existing code.
	Join(ctx context.Context, project string, reg Registration) (JoinResult, error)

	// Status reports rank, total and referral count for one member from a
	// single consistent snapshot. It never mutates state.
	Status(ctx context.Context, project, email string) (Status, error)

	// List enumerates all members of a project in rank order, for export.
	List(ctx context.Context, project string) ([]Member, error)
}
