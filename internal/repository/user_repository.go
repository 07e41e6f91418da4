package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"infinixai/internal/entities"
)

const userColumns = "id, username, password_hash, role, is_active, created_at"

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user, assigning a new id when it has none.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO users (id, username, password_hash, role, is_active) VALUES ($1, $2, $3, $4, $5) RETURNING created_at",
		user.ID, user.Username, user.PasswordHash, user.Role, user.IsActive,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByUsername returns nil, nil when no such user exists.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
}

// GetByID returns nil, nil when no such user exists.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRepository) List(ctx context.Context) ([]entities.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []entities.User{}
	for rows.Next() {
		var u entities.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET is_active = $2 WHERE id = $1", id, active)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return checkAffected(res)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*entities.User, error) {
	var user entities.User
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.IsActive, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
