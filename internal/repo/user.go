package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/crucial707/asset-vault/internal/models"
)

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// ==========================
// Find By Username
// ==========================
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, created_at
		FROM users
		WHERE username = $1
	`

	user := &models.User{}

	err := r.DB.QueryRowContext(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}

	return user, nil
}

// ==========================
// Create User
// ==========================
// Uniqueness of username and email is enforced by the table constraints; concurrent
// duplicates lose at the store and get ErrUserExists or ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash, role string) (*models.User, error) {
	if role == "" {
		role = models.RoleUser
	}

	query := `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	err := r.DB.QueryRowContext(ctx, query, username, email, passwordHash, role).
		Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return nil, mapUserWriteError(err)
	}

	return user, nil
}

func mapUserWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			if pqErr.Constraint == "users_email_key" {
				return ErrEmailExists
			}
			return ErrUserExists
		case pqCheckViolation:
			return ErrInvalidRole
		}
	}
	return fmt.Errorf("insert user: %w", err)
}
