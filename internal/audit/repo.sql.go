// Package audit persists a trail of gateway sign-ins so operators can
// answer who was signed in when, independent of the volatile session
// state in Redis.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRecord is one audited sign-in.
type SessionRecord struct {
	ID        string
	UserID    int64
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}

// Repository provides PostgreSQL backed persistence for the sign-in trail.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSession records a sign-in. A duplicate session id means the row
// was already written by a racing login on the same session; that is not
// an error.
func (r *Repository) CreateSession(ctx context.Context, rec SessionRecord) error {
	if r.pool == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_sessions (id, user_id, role, created_at, expires_at, ip, ua)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID,
		rec.UserID,
		rec.Role,
		pgtype.Timestamptz{Time: now, Valid: true},
		pgtype.Timestamptz{Time: rec.ExpiresAt.UTC(), Valid: true},
		pgtype.Text{String: rec.IP, Valid: rec.IP != ""},
		pgtype.Text{String: rec.UserAgent, Valid: rec.UserAgent != ""},
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil
	}
	return err
}

// DeleteSession removes the record for an explicit logout.
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	if r.pool == nil {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id)
	return err
}

// SessionsForUser lists the audited sign-ins for one user, newest first.
func (r *Repository) SessionsForUser(ctx context.Context, userID int64) ([]SessionRecord, error) {
	if r.pool == nil {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, role, created_at, expires_at, COALESCE(ip, ''), COALESCE(ua, '')
		FROM auth_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var createdAt, expiresAt pgtype.Timestamptz
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Role, &createdAt, &expiresAt, &rec.IP, &rec.UserAgent); err != nil {
			return nil, err
		}
		rec.CreatedAt = createdAt.Time
		rec.ExpiresAt = expiresAt.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// FindSession fetches one record by session id.
func (r *Repository) FindSession(ctx context.Context, id string) (*SessionRecord, error) {
	if r.pool == nil {
		return nil, pgx.ErrNoRows
	}
	var rec SessionRecord
	var createdAt, expiresAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, role, created_at, expires_at, COALESCE(ip, ''), COALESCE(ua, '')
		FROM auth_sessions
		WHERE id = $1`, id).
		Scan(&rec.ID, &rec.UserID, &rec.Role, &createdAt, &expiresAt, &rec.IP, &rec.UserAgent)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = createdAt.Time
	rec.ExpiresAt = expiresAt.Time
	return &rec, nil
}

// PruneExpired deletes records whose expiry has passed and reports how
// many were removed. Run from the background worker.
func (r *Repository) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < $1`,
		pgtype.Timestamptz{Time: now.UTC(), Valid: true})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
