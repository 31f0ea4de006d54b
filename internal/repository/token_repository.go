package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// TokenRepo persists refresh token records.  A user has at most one
// active record; Rotate is the only way new records are written and it
// revokes the previous ones in the same transaction.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Rotate revokes every active refresh record of rec.UserID and inserts rec,
// atomically.  The user row is locked for the duration of the transaction
// so concurrent rotations for the same user serialize.
//
// When consumedID is non-empty the record with that id must still be
// active (not revoked, not expired at now) once the lock is held;
// otherwise ErrTokenInactive is returned and nothing is written.  Login
// passes an empty consumedID.
func (r *TokenRepo) Rotate(ctx context.Context, consumedID string, rec *model.RefreshToken, now time.Time) error {
	const op = "repository.TokenRepo.Rotate"

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var uid uint64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id=? FOR UPDATE", rec.UserID).Scan(&uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: lock user: %w", op, err)
	}

	if consumedID != "" {
		var (
			expiresAt time.Time
			revokedAt sql.NullTime
		)
		err := tx.QueryRowContext(ctx,
			"SELECT expires_at, revoked_at FROM refresh_tokens WHERE id=? AND user_id=?",
			consumedID, rec.UserID).Scan(&expiresAt, &revokedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, ErrTokenInactive)
		}
		if err != nil {
			return fmt.Errorf("%s: load consumed: %w", op, err)
		}
		if revokedAt.Valid || !now.Before(expiresAt) {
			return fmt.Errorf("%s: %w", op, ErrTokenInactive)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		now, rec.UserID); err != nil {
		return fmt.Errorf("%s: revoke: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?,?)",
		rec.ID, rec.UserID, rec.TokenHash, rec.ExpiresAt, now); err != nil {
		return fmt.Errorf("%s: insert: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	committed = true
	rec.CreatedAt = now
	return nil
}

// GetByID loads a refresh record by its id.
func (r *TokenRepo) GetByID(ctx context.Context, id string) (*model.RefreshToken, error) {
	const op = "repository.TokenRepo.GetByID"

	var (
		t         model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE id=? LIMIT 1",
		id).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revokedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revokedAt.Valid {
		ts := revokedAt.Time
		t.RevokedAt = &ts
	}
	return &t, nil
}

// RevokeAllForUser revokes all user's active tokens.  Revoking a user with
// no active tokens is not an error.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		now, userID)
	if err != nil {
		return fmt.Errorf("repository.TokenRepo.RevokeAllForUser: %w", err)
	}
	return nil
}

// DeleteExpired removes records that expired before cutoff and returns how
// many were deleted.
func (r *TokenRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("repository.TokenRepo.DeleteExpired: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
