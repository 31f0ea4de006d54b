package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// UserRepo persists users.  Emails are stored lower-cased so lookups are
// case-insensitive.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,password_hash,role,is_active,created_at,updated_at"

// Create inserts u and fills in its ID and timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const op = "repository.UserRepo.Create"

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, role, is_active, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.Name, u.PasswordHash, u.Role, u.IsActive, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%s: %w", op, ErrEmailExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	u.ID = uint64(id)
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "repository.UserRepo.GetByEmail",
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "repository.UserRepo.GetByID",
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, op, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

// UpdatePasswordHash replaces the stored hash.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	return r.update(ctx, "repository.UserRepo.UpdatePasswordHash", "password_hash", hash, id)
}

// UpdateName replaces the display name.
func (r *UserRepo) UpdateName(ctx context.Context, id uint64, name string) error {
	return r.update(ctx, "repository.UserRepo.UpdateName", "name", name, id)
}

// UpdateRole changes the user's role.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	return r.update(ctx, "repository.UserRepo.UpdateRole", "role", role, id)
}

// SetActive activates or deactivates the account.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	return r.update(ctx, "repository.UserRepo.SetActive", "is_active", active, id)
}

// update writes a single column.  column is always a constant chosen by
// the caller above, never user input.  The DSN sets clientFoundRows so
// RowsAffected counts matched rows even when the value is unchanged.
func (r *UserRepo) update(ctx context.Context, op, column string, value any, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+column+"=?, updated_at=? WHERE id=?",
		value, time.Now().UTC().Truncate(time.Second), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
