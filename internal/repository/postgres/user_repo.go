package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/model"
)

// UserRepo implements repository.UserRepository.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new account and sets a.ID.
func (r *UserRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO users (name, email, avatar, role, pwd_hash, salt_auth)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	err := r.db.Pool.QueryRow(ctx, q, a.Name, a.Email, a.Avatar, string(a.Role), a.PwdHash, a.SaltAuth).Scan(&a.ID)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

const selectAccount = `
SELECT id, name, email, avatar, role, pwd_hash, salt_auth
FROM users`

// GetByID selects an account by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int) (*model.Account, error) {
	return scanAccount(r.db.Pool.QueryRow(ctx, selectAccount+` WHERE id=$1`, id))
}

// GetByEmail selects an account by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return scanAccount(r.db.Pool.QueryRow(ctx, selectAccount+` WHERE email=$1`, email))
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		a    model.Account
		role string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Avatar, &role, &a.PwdHash, &a.SaltAuth); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	a.Role = model.Role(role)
	return &a, nil
}
