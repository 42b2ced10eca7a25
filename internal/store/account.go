package store

import (
	"context"

	"clinic-booking/internal/model"
)

const accountCols = `id, username, email, password_hash, role, COALESCE(specialty, ''), created_at`

func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	a := &model.Account{}
	var role string
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &a.Specialty, &a.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	a.Role = model.Role(role)
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	var specialty *string
	if a.Specialty != "" {
		specialty = &a.Specialty
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (id, username, email, password_hash, role, specialty)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING created_at`,
		a.ID, a.Username, a.Email, a.PasswordHash, string(a.Role), specialty,
	).Scan(&a.CreatedAt)
	return mapErr(err)
}

func (s *Store) AccountByID(ctx context.Context, id string) (*model.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = $1`, id))
}

func (s *Store) AccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE username = $1`, username))
}

func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1)`, username).Scan(&ok)
	return ok, err
}

func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`, email).Scan(&ok)
	return ok, err
}

func (s *Store) ListProviders(ctx context.Context) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE role = 'provider' ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
