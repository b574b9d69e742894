package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

// Emails are stored normalized: lowercased and trimmed
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const createUser = `-- name: CreateUser
INSERT INTO users (name, email, password_hash, email_verified, parent_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, name, email, password_hash, email_verified, parent_id
`

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, arg.Name, normalizeEmail(arg.Email), arg.PasswordHash, arg.EmailVerified, arg.ParentID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// Create user with the email or return the existing one as is
// The unique index on email resolves concurrent creation races
const getOrCreateUser = `-- name: GetOrCreateUser
WITH new_user AS (
	INSERT INTO users (name, email, password_hash, email_verified, parent_id)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (email) DO NOTHING
	RETURNING id, created_at, name, email, password_hash, email_verified, parent_id
)
SELECT id, created_at, name, email, password_hash, email_verified, parent_id FROM new_user
UNION
SELECT id, created_at, name, email, password_hash, email_verified, parent_id FROM users WHERE email = $2
`

func (r *UserRepo) GetOrCreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	// Same race window as GetOrCreateWallet: a row committed concurrently
	// after this statement's snapshot is invisible to both arms. Retry on a
	// fresh snapshot.
	for range 3 {
		rows, _ := r.DB.Query(ctx, getOrCreateUser, arg.Name, normalizeEmail(arg.Email), arg.PasswordHash, arg.EmailVerified, arg.ParentID)
		user, err := pgx.CollectOneRow(rows, rowToUser)

		switch {
		case err == nil:
			return user, nil
		case errors.Is(err, pgx.ErrNoRows):
			continue
		default:
			return user, fmt.Errorf("db error: %w", err)
		}
	}

	return models.User{}, fmt.Errorf("user %s: lost creation race repeatedly", normalizeEmail(arg.Email))
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, name, email, password_hash, email_verified, parent_id
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, name, email, password_hash, email_verified, parent_id
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, normalizeEmail(email))
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

// Stable child ordering keeps subtree traversals reproducible
const listChildren = `-- name: ListChildren
SELECT id, created_at, name, email, password_hash, email_verified, parent_id
FROM users
WHERE parent_id = $1
ORDER BY created_at, id
`

func (r *UserRepo) ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listChildren, parentID)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Name, &u.Email, &u.PasswordHash, &u.EmailVerified, &u.ParentID)
	return u, err
}
