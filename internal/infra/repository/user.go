package repository

import (
	"context"

	"rentloop/internal/infra"
	"rentloop/internal/infra/db"
	"rentloop/internal/pkg/pgconv"
	"rentloop/internal/usecase/queries"

	"github.com/google/uuid"
)

type UserRepository struct {
	db db.DBTX
}

func NewUserRepository(dbtx db.DBTX) *UserRepository {
	return &UserRepository{db: dbtx}
}

const findUserByEmailSQL = `
SELECT id, email, role, is_active, password_hash
FROM users
WHERE email = $1`

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*queries.AuthorizedUserView, string, error) {
	var (
		view queries.AuthorizedUserView
		hash string
	)
	err := r.db.QueryRow(ctx, findUserByEmailSQL, email).Scan(
		&view.ID, &view.Email, &view.Role, &view.IsActive, &hash,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, "", infra.WrapRepoErr("user not found", err, infra.KindNotFound)
		}
		return nil, "", infra.WrapRepoErr("failed to find user by email", err)
	}
	return &view, hash, nil
}

const findUserByIDSQL = `
SELECT id, email, role, is_active
FROM users
WHERE id = $1`

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*queries.AuthorizedUserView, error) {
	var view queries.AuthorizedUserView
	err := r.db.QueryRow(ctx, findUserByIDSQL, id).Scan(
		&view.ID, &view.Email, &view.Role, &view.IsActive,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("user not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find user by id", err)
	}
	return &view, nil
}

const updateLastLoginSQL = `
UPDATE users SET last_login_at = now() WHERE id = $1`

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, updateLastLoginSQL, userID)
	if err != nil {
		return infra.WrapRepoErr("failed to update last login", err)
	}
	return nil
}
