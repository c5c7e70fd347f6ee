package waitlist

import "sort"

// boardEntry tracks the rank key of one member: referral score plus the
// sequence number assigned at creation, which breaks score ties in favour of
// earlier registrations.
type boardEntry struct {
	score int64
	seq   int64
}

// scoreBoard is the ordered score structure behind the memory store. It is not
// safe for concurrent use; callers hold the owning project lock.
type scoreBoard struct {
	entries map[string]*boardEntry
	nextSeq int64
}

func newScoreBoard() *scoreBoard {
	return &scoreBoard{entries: make(map[string]*boardEntry)}
}

// tryCreate inserts email with score 0 and the next sequence number. It
// returns false without mutating anything if the email already exists.
func (b *scoreBoard) tryCreate(email string) bool {
	if _, exists := b.entries[email]; exists {
		return false
	}
	b.nextSeq++
	b.entries[email] = &boardEntry{seq: b.nextSeq}
	return true
}

// incrementScore adds delta to the member's score. Missing members are
// reported so callers can surface the broken invariant instead of minting
// score out of nowhere.
func (b *scoreBoard) incrementScore(email string, delta int64) bool {
	entry, ok := b.entries[email]
	if !ok {
		return false
	}
	entry.score += delta
	return true
}

func (b *scoreBoard) exists(email string) bool {
	_, ok := b.entries[email]
	return ok
}

func (b *scoreBoard) score(email string) (int64, bool) {
	entry, ok := b.entries[email]
	if !ok {
		return 0, false
	}
	return entry.score, true
}

// rankOf reports the 1-based rank of email under (score desc, seq asc) order
// and the total member count.
func (b *scoreBoard) rankOf(email string) (rank, total int64, ok bool) {
	mine, exists := b.entries[email]
	if !exists {
		return 0, 0, false
	}
	rank = 1
	for _, entry := range b.entries {
		if entry.score > mine.score || (entry.score == mine.score && entry.seq < mine.seq) {
			rank++
		}
	}
	return rank, int64(len(b.entries)), true
}

// ranked returns all emails in rank order.
func (b *scoreBoard) ranked() []string {
	emails := make([]string, 0, len(b.entries))
	for email := range b.entries {
		emails = append(emails, email)
	}
	sort.Slice(emails, func(i, j int) bool {
		a, c := b.entries[emails[i]], b.entries[emails[j]]
		if a.score != c.score {
			return a.score > c.score
		}
		return a.seq < c.seq
	})
	return emails
}
