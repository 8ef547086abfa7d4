package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clubhouse/backend/internal/models"
	"github.com/clubhouse/backend/pkg/database"
)

var (
	// ErrUserNotFound is returned when no active user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrOwnsClubs blocks deleting an account that still owns clubs.
	ErrOwnsClubs = errors.New("user still owns clubs")
)

// Repository handles user persistence. Soft-deleted users are invisible to it.
type Repository struct {
	db database.DB
}

// NewRepository creates an auth repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, password_hash, full_name, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns an active user by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, q, id))
}

// GetByEmail returns an active user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, q, email))
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, q, email, passwordHash, fullName))
}

// SoftDelete marks the user deleted. Memberships of deleted users stop counting.
// Owners must hand over or delete their clubs first. The user row stays locked
// until commit so a concurrent delegation to this user waits for the outcome.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	const lock = `SELECT id FROM users WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	const owns = `SELECT EXISTS (SELECT 1 FROM clubs WHERE owner_id = $1)`
	const q = `UPDATE users SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1`

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, lock, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}
		var ownsClubs bool
		if err := tx.QueryRow(ctx, owns, id).Scan(&ownsClubs); err != nil {
			return fmt.Errorf("check owned clubs: %w", err)
		}
		if ownsClubs {
			return ErrOwnsClubs
		}
		if _, err := tx.Exec(ctx, q, id); err != nil {
			return fmt.Errorf("soft delete user: %w", err)
		}
		return nil
	})
}
