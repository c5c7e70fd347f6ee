package waitlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps waitlist state in a single waitlist_members table:
//
//	project     text        not null
//	email       text        not null
//	ref_code    text        not null
//	referred_by text
//	score       bigint      not null default 0
//	seq         bigserial   not null
//	created_at  timestamptz not null
//	primary key (project, email)
//	unique (project, ref_code)
//
// The registration transaction is one database transaction; the referrer row
// is locked FOR UPDATE so concurrent credits serialize instead of racing.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

// Join registers a member inside one transaction.
func (s *PostgresStore) Join(ctx context.Context, project string, reg Registration) (JoinResult, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return JoinResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var existing string
	err = tx.QueryRow(ctx, `SELECT ref_code FROM waitlist_members WHERE project = $1 AND email = $2`,
		project, reg.Email).Scan(&existing)
	if err == nil {
		return JoinResult{RefCode: existing}, ErrAlreadyJoined
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return JoinResult{}, err
	}

	// Resolve and lock the referrer before creating the new member. Unknown
	// codes fall through without credit.
	referrer := ""
	if reg.ReferrerCode != "" {
		err = tx.QueryRow(ctx, `SELECT email FROM waitlist_members WHERE project = $1 AND ref_code = $2 FOR UPDATE`,
			project, reg.ReferrerCode).Scan(&referrer)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return JoinResult{}, err
		}
	}
	if referrer != "" {
		if _, err := tx.Exec(ctx, `UPDATE waitlist_members SET score = score + 1 WHERE project = $1 AND email = $2`,
			project, referrer); err != nil {
			return JoinResult{}, err
		}
	}

	referredBy := sql.NullString{String: referrer, Valid: referrer != ""}
	var seq int64
	err = tx.QueryRow(ctx, `INSERT INTO waitlist_members (project, email, ref_code, referred_by, score, created_at)
        VALUES ($1, $2, $3, $4, 0, $5) RETURNING seq`,
		project, reg.Email, reg.RefCode, referredBy, reg.CreatedAt.UTC()).Scan(&seq)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// A concurrent transaction won either the email slot or the code.
			if pgErr.ConstraintName == "waitlist_members_pkey" {
				return s.existingResult(ctx, project, reg.Email)
			}
			return JoinResult{}, ErrCodeTaken
		}
		return JoinResult{}, err
	}

	// The new row carries score 0, so only rows with a referral or an
	// earlier sequence rank ahead of it.
	var rank, total int64
	err = tx.QueryRow(ctx, `SELECT
            count(*),
            1 + count(*) FILTER (WHERE score > 0 OR (score = 0 AND seq < $2))
        FROM waitlist_members WHERE project = $1`,
		project, seq).Scan(&total, &rank)
	if err != nil {
		return JoinResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return JoinResult{}, err
	}

	return JoinResult{RefCode: reg.RefCode, Rank: rank, Total: total}, nil
}

func (s *PostgresStore) existingResult(ctx context.Context, project, email string) (JoinResult, error) {
	var code string
	if err := s.db.QueryRow(ctx, `SELECT ref_code FROM waitlist_members WHERE project = $1 AND email = $2`,
		project, email).Scan(&code); err != nil {
		return JoinResult{}, err
	}
	return JoinResult{RefCode: code}, ErrAlreadyJoined
}

// Status computes rank and total in one query so both come from the same
// snapshot.
func (s *PostgresStore) Status(ctx context.Context, project, email string) (Status, error) {
	const query = `SELECT m.ref_code, m.score,
            (SELECT count(*) FROM waitlist_members t WHERE t.project = $1),
            1 + (SELECT count(*) FROM waitlist_members t WHERE t.project = $1
                 AND (t.score > m.score OR (t.score = m.score AND t.seq < m.seq)))
        FROM waitlist_members m WHERE m.project = $1 AND m.email = $2`

	var st Status
	err := s.db.QueryRow(ctx, query, project, email).Scan(&st.RefCode, &st.Score, &st.Total, &st.Rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Status{}, ErrNotFound
		}
		return Status{}, err
	}
	st.AheadOf = st.Total - st.Rank
	return st, nil
}

// List enumerates all members in rank order.
func (s *PostgresStore) List(ctx context.Context, project string) ([]Member, error) {
	rows, err := s.db.Query(ctx, `SELECT email, ref_code, COALESCE(referred_by, ''), score, created_at
        FROM waitlist_members WHERE project = $1 ORDER BY score DESC, seq ASC`, project)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.Email, &m.RefCode, &m.ReferredBy, &m.Score, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		members = append(members, m)
	}
	return members, rows.Err()
}
