package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is a server-side refresh credential; only its hash is stored.
type Session struct {
	ID         string
	AccountID  string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	RotatedAt  *time.Time
	CreatedAt  time.Time
}

func (s *Store) CreateSession(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, account_id, token_hash, expires_at) VALUES ($1,$2,$3,$4)`,
		id, accountID, tokenHash, expiresAt,
	)
	return id, mapErr(err)
}

const sessionCols = `id, account_id, token_hash, expires_at, revoked, replaced_by, rotated_at, created_at`

func (s *Store) SessionByHash(ctx context.Context, tokenHash string) (*Session, error) {
	return s.session(ctx, `SELECT `+sessionCols+` FROM sessions WHERE token_hash = $1`, tokenHash)
}

func (s *Store) SessionByID(ctx context.Context, id string) (*Session, error) {
	return s.session(ctx, `SELECT `+sessionCols+` FROM sessions WHERE id = $1`, id)
}

func (s *Store) session(ctx context.Context, query string, arg string) (*Session, error) {
	rt := &Session{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&rt.ID, &rt.AccountID, &rt.TokenHash, &rt.ExpiresAt, &rt.Revoked, &rt.ReplacedBy, &rt.RotatedAt, &rt.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return rt, nil
}

// rotate: revoke old session, create new one, link them
func (s *Store) RotateSession(ctx context.Context, oldID, newID, accountID, newHash string, newExpiry time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE sessions SET revoked = true, replaced_by = $1, rotated_at = NOW() WHERE id = $2 AND revoked = false`,
		newID, oldID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// lost a race with another rotation or a logout
		return ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (id, account_id, token_hash, expires_at) VALUES ($1,$2,$3,$4)`,
		newID, accountID, newHash, newExpiry,
	)
	if err != nil {
		return mapErr(err)
	}

	return tx.Commit(ctx)
}

// revoke all sessions for an account (logout or suspected theft)
func (s *Store) RevokeSessions(ctx context.Context, accountID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sessions SET revoked = true WHERE account_id = $1 AND revoked = false`,
		accountID,
	)
	return err
}
