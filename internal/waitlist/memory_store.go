package waitlist

import (
	"context"
	"fmt"
	"sync"
)

// memberRecord holds the immutable registration metadata of one member. The
// score lives on the board only, so there is a single source of truth.
type memberRecord struct {
	refCode    string
	referredBy string
	createdAt  int64 // unix milliseconds
}

// memoryProject bundles the three per-project structures touched by a
// registration: the score board, the code registry and the member records.
// Its mutex is the transaction boundary; every Join holds it start to finish.
type memoryProject struct {
	mu      sync.Mutex
	board   *scoreBoard
	codes   map[string]string // referral code -> email
	records map[string]memberRecord
}

func (p *memoryProject) resolveCode(code string) (string, bool) {
	email, ok := p.codes[code]
	return email, ok
}

func (p *memoryProject) registerCode(code, email string) bool {
	if _, taken := p.codes[code]; taken {
		return false
	}
	p.codes[code] = email
	return true
}

func (p *memoryProject) getRecord(email string) (memberRecord, bool) {
	rec, ok := p.records[email]
	return rec, ok
}

func (p *memoryProject) putRecord(email string, rec memberRecord) bool {
	if _, exists := p.records[email]; exists {
		return false
	}
	p.records[email] = rec
	return true
}

type memoryStore struct {
	mu       sync.Mutex
	projects map[string]*memoryProject
}

// NewMemoryStore builds an in-process Store. It backs development mode and
// tests; all guarantees of the Store contract hold under concurrency.
func NewMemoryStore() Store {
	return &memoryStore{projects: make(map[string]*memoryProject)}
}

func (s *memoryStore) project(name string) *memoryProject {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[name]
	if !ok {
		p = &memoryProject{
			board:   newScoreBoard(),
			codes:   make(map[string]string),
			records: make(map[string]memberRecord),
		}
		s.projects[name] = p
	}
	return p
}

// lookup returns the project without creating it, so reads never materialize
// empty projects.
func (s *memoryStore) lookup(name string) *memoryProject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects[name]
}

func (s *memoryStore) Join(_ context.Context, project string, reg Registration) (JoinResult, error) {
	p := s.project(project)
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.getRecord(reg.Email); ok {
		return JoinResult{RefCode: existing.refCode}, ErrAlreadyJoined
	}
	if _, taken := p.codes[reg.RefCode]; taken {
		return JoinResult{}, ErrCodeTaken
	}

	// Resolve the referrer before the new member exists; unknown codes are
	// ignored and self-referral is impossible by this ordering.
	referrer := ""
	if reg.ReferrerCode != "" {
		if email, ok := p.resolveCode(reg.ReferrerCode); ok {
			referrer = email
		}
	}

	// All checks passed; from here every step succeeds, so the mutation is
	// all-or-nothing under the project lock.
	if referrer != "" {
		if !p.board.incrementScore(referrer, 1) {
			return JoinResult{}, fmt.Errorf("referrer %q has a code but no board entry", referrer)
		}
	}
	p.board.tryCreate(reg.Email)
	p.registerCode(reg.RefCode, reg.Email)
	p.putRecord(reg.Email, memberRecord{
		refCode:    reg.RefCode,
		referredBy: referrer,
		createdAt:  reg.CreatedAt.UnixMilli(),
	})

	rank, total, _ := p.board.rankOf(reg.Email)
	return JoinResult{RefCode: reg.RefCode, Rank: rank, Total: total}, nil
}

func (s *memoryStore) Status(_ context.Context, project, email string) (Status, error) {
	p := s.lookup(project)
	if p == nil {
		return Status{}, ErrNotFound
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.getRecord(email)
	if !ok {
		return Status{}, ErrNotFound
	}
	rank, total, _ := p.board.rankOf(email)
	score, _ := p.board.score(email)
	return Status{
		Rank:    rank,
		Total:   total,
		AheadOf: total - rank,
		RefCode: rec.refCode,
		Score:   score,
	}, nil
}

func (s *memoryStore) List(_ context.Context, project string) ([]Member, error) {
	p := s.lookup(project)
	if p == nil {
		return nil, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	emails := p.board.ranked()
	members := make([]Member, 0, len(emails))
	for _, email := range emails {
		rec := p.records[email]
		score, _ := p.board.score(email)
		members = append(members, Member{
			Email:      email,
			RefCode:    rec.refCode,
			ReferredBy: rec.referredBy,
			Score:      score,
			CreatedAt:  millisToTime(rec.createdAt),
		})
	}
	return members, nil
}
