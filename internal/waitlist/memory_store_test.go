package waitlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func reg(email, code, referrer string) Registration {
	return Registration{Email: email, RefCode: code, ReferrerCode: referrer, CreatedAt: time.Now().UTC()}
}

func TestMemoryStoreJoinAndStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	res, err := store.Join(ctx, "p1", reg("a@x.com", "C1", ""))
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	if res.Rank != 1 || res.Total != 1 {
		t.Fatalf("expected rank 1/1, got %d/%d", res.Rank, res.Total)
	}

	res, err = store.Join(ctx, "p1", reg("b@x.com", "C2", "C1"))
	if err != nil {
		t.Fatalf("join b: %v", err)
	}
	if res.Rank != res.Total {
		t.Fatalf("fresh member should rank last, got %d/%d", res.Rank, res.Total)
	}

	st, err := store.Status(ctx, "p1", "a@x.com")
	if err != nil {
		t.Fatalf("status a: %v", err)
	}
	if st.Rank != 1 || st.Total != 2 || st.AheadOf != 1 || st.Score != 1 || st.RefCode != "C1" {
		t.Fatalf("unexpected status for a: %+v", st)
	}

	st, err = store.Status(ctx, "p1", "b@x.com")
	if err != nil {
		t.Fatalf("status b: %v", err)
	}
	if st.Rank != 2 || st.Total != 2 || st.AheadOf != 0 || st.Score != 0 {
		t.Fatalf("unexpected status for b: %+v", st)
	}
}

func TestMemoryStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Join(ctx, "p1", reg("a@x.com", "C1", "")); err != nil {
		t.Fatalf("join: %v", err)
	}
	res, err := store.Join(ctx, "p1", reg("a@x.com", "C2", ""))
	if !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
	if res.RefCode != "C1" {
		t.Fatalf("expected existing code C1, got %q", res.RefCode)
	}

	st, err := store.Status(ctx, "p1", "a@x.com")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Total != 1 {
		t.Fatalf("duplicate join must not change total, got %d", st.Total)
	}
}

func TestMemoryStoreUnknownReferrerIgnored(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	res, err := store.Join(ctx, "p1", reg("a@x.com", "C1", "NOPE9999"))
	if err != nil {
		t.Fatalf("join with garbage code: %v", err)
	}
	if res.Rank != 1 || res.Total != 1 {
		t.Fatalf("expected rank 1/1, got %d/%d", res.Rank, res.Total)
	}
	st, err := store.Status(ctx, "p1", "a@x.com")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Score != 0 {
		t.Fatalf("no credit expected, got score %d", st.Score)
	}
}

func TestMemoryStoreCodeCollision(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Join(ctx, "p1", reg("a@x.com", "C1", "")); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := store.Join(ctx, "p1", reg("b@x.com", "C1", "")); !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
	// The failed attempt must leave no trace.
	if _, err := store.Status(ctx, "p1", "b@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after failed join, got %v", err)
	}
}

func TestMemoryStoreProjectsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Join(ctx, "p1", reg("a@x.com", "C1", "")); err != nil {
		t.Fatalf("join p1: %v", err)
	}
	// Same email and same code are both free in another project.
	if _, err := store.Join(ctx, "p2", reg("a@x.com", "C1", "")); err != nil {
		t.Fatalf("join p2: %v", err)
	}
	if _, err := store.Status(ctx, "p3", "a@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound in empty project, got %v", err)
	}
}

func TestMemoryStoreConcurrentDuplicateJoins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const attempts = 100
	var wg sync.WaitGroup
	successes := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Join(ctx, "p1", reg("a@x.com", fmt.Sprintf("CODE%04d", i), ""))
			if err == nil {
				successes <- struct{}{}
			} else if !errors.Is(err, ErrAlreadyJoined) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	close(successes)

	if n := len(successes); n != 1 {
		t.Fatalf("expected exactly one successful join, got %d", n)
	}
}

func TestMemoryStoreConcurrentReferralCredits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Join(ctx, "p1", reg("referrer@x.com", "ROOT", "")); err != nil {
		t.Fatalf("join referrer: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("user%d@x.com", i)
			if _, err := store.Join(ctx, "p1", reg(email, fmt.Sprintf("CODE%04d", i), "ROOT")); err != nil {
				t.Errorf("join %s: %v", email, err)
			}
		}(i)
	}
	wg.Wait()

	st, err := store.Status(ctx, "p1", "referrer@x.com")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Score != n {
		t.Fatalf("expected score %d, got %d", n, st.Score)
	}
	if st.Rank != 1 {
		t.Fatalf("referrer should rank first, got %d", st.Rank)
	}
	if st.Rank > st.Total || st.AheadOf < 0 {
		t.Fatalf("inconsistent status: %+v", st)
	}
}

func TestMemoryStoreListOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Join(ctx, "p1", reg("a@x.com", "C1", "")); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if _, err := store.Join(ctx, "p1", reg("b@x.com", "C2", "")); err != nil {
		t.Fatalf("join b: %v", err)
	}
	if _, err := store.Join(ctx, "p1", reg("c@x.com", "C3", "C2")); err != nil {
		t.Fatalf("join c: %v", err)
	}

	members, err := store.List(ctx, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"b@x.com", "a@x.com", "c@x.com"}
	if len(members) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(members))
	}
	for i, m := range members {
		if m.Email != want[i] {
			t.Fatalf("position %d: expected %s got %s", i, want[i], m.Email)
		}
	}
	if members[0].Score != 1 {
		t.Fatalf("expected b score 1, got %d", members[0].Score)
	}
	if members[2].ReferredBy != "b@x.com" {
		t.Fatalf("expected c referred by b, got %q", members[2].ReferredBy)
	}
}
