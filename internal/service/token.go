package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/utils"
)

// TokenStore persists refresh records.  *repository.TokenRepo implements it.
type TokenStore interface {
	Rotate(ctx context.Context, consumedID string, rec *model.RefreshToken, now time.Time) error
	GetByID(ctx context.Context, id string) (*model.RefreshToken, error)
	RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// RefreshSubject identifies the owner and record behind a valid refresh
// token.
type RefreshSubject struct {
	UserID   uint64
	RecordID string
}

// TokenIssuer mints access tokens and the store-backed refresh tokens.
// Access tokens are stateless; refresh tokens are only valid while their
// record is active, and a user never has more than one active record.
type TokenIssuer struct {
	signer *utils.TokenSigner
	store  TokenStore
	newID  func() string
}

// NewTokenIssuer returns an issuer signing with signer and persisting to
// store.
func NewTokenIssuer(signer *utils.TokenSigner, store TokenStore) *TokenIssuer {
	return &TokenIssuer{signer: signer, store: store, newID: uuid.NewString}
}

// Now is the issuer's clock.
func (t *TokenIssuer) Now() time.Time { return t.signer.Now() }

// IssueAccess signs an access token for p.  The result is a pure function
// of p and the clock.
func (t *TokenIssuer) IssueAccess(p model.UserProfile) (utils.AccessToken, error) {
	tok, err := t.signer.SignAccess(p.ID, p.Email, p.Role)
	if err != nil {
		return utils.AccessToken{}, fmt.Errorf("service.TokenIssuer.IssueAccess: %w: %w", ErrInfrastructure, err)
	}
	return tok, nil
}

// IssueRefresh mints a refresh token for userID and makes it the user's
// only active record.
func (t *TokenIssuer) IssueRefresh(ctx context.Context, userID uint64) (utils.RefreshToken, error) {
	return t.issueRefresh(ctx, userID, "")
}

// RotateRefresh replaces the record behind sub with a new one.  If the
// record is no longer active when the rotation transaction runs, for
// example because a concurrent refresh consumed it first, the rotation
// fails with ErrInvalidToken and nothing changes.
func (t *TokenIssuer) RotateRefresh(ctx context.Context, sub RefreshSubject) (utils.RefreshToken, error) {
	return t.issueRefresh(ctx, sub.UserID, sub.RecordID)
}

func (t *TokenIssuer) issueRefresh(ctx context.Context, userID uint64, consumedID string) (utils.RefreshToken, error) {
	const op = "service.TokenIssuer.issueRefresh"

	tok, err := t.signer.SignRefresh(userID, t.newID())
	if err != nil {
		return utils.RefreshToken{}, fmt.Errorf("%s: %w: %w", op, ErrInfrastructure, err)
	}
	rec := &model.RefreshToken{
		ID:        tok.RecordID,
		UserID:    userID,
		TokenHash: utils.HashRefreshRaw(tok.Raw),
		ExpiresAt: tok.Exp,
	}
	if err := t.store.Rotate(ctx, consumedID, rec, t.Now()); err != nil {
		return utils.RefreshToken{}, storeErr(op, err)
	}
	return tok, nil
}

// ValidateAccess checks an access token without touching storage.
func (t *TokenIssuer) ValidateAccess(raw string) (*utils.AccessClaims, error) {
	claims, err := t.signer.ParseAccess(raw)
	if err != nil {
		return nil, fmt.Errorf("service.TokenIssuer.ValidateAccess: %w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// ValidateRefresh verifies the signature and then the backing record.  A
// record that is missing, revoked, expired, owned by someone else or whose
// hash does not match fails with ErrInvalidToken.  Store failures are
// reported as ErrInfrastructure, never as an invalid token.
func (t *TokenIssuer) ValidateRefresh(ctx context.Context, raw string) (RefreshSubject, error) {
	const op = "service.TokenIssuer.ValidateRefresh"

	claims, err := t.signer.ParseRefresh(raw)
	if err != nil {
		return RefreshSubject{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return RefreshSubject{}, fmt.Errorf("%s: %w: bad subject", op, ErrInvalidToken)
	}
	sub := RefreshSubject{UserID: uid, RecordID: claims.ID}

	rec, err := t.store.GetByID(ctx, sub.RecordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return RefreshSubject{}, fmt.Errorf("%s: %w: unknown record", op, ErrInvalidToken)
		}
		return RefreshSubject{}, fmt.Errorf("%s: %w: %w", op, ErrInfrastructure, err)
	}
	switch {
	case rec.UserID != sub.UserID:
		return RefreshSubject{}, fmt.Errorf("%s: %w: owner mismatch", op, ErrInvalidToken)
	case rec.TokenHash != utils.HashRefreshRaw(raw):
		return RefreshSubject{}, fmt.Errorf("%s: %w: hash mismatch", op, ErrInvalidToken)
	case rec.Revoked():
		return RefreshSubject{}, fmt.Errorf("%s: %w: revoked", op, ErrInvalidToken)
	case !rec.Active(t.Now()):
		return RefreshSubject{}, fmt.Errorf("%s: %w: expired", op, ErrInvalidToken)
	}
	return sub, nil
}

// RevokeAll revokes every refresh record of userID.  Revoking a user with
// nothing active is a no-op.
func (t *TokenIssuer) RevokeAll(ctx context.Context, userID uint64) error {
	if err := t.store.RevokeAllForUser(ctx, userID, t.Now()); err != nil {
		return storeErr("service.TokenIssuer.RevokeAll", err)
	}
	return nil
}

// PurgeExpired deletes records that expired more than retention ago.
func (t *TokenIssuer) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := t.store.DeleteExpired(ctx, t.Now().Add(-retention))
	if err != nil {
		return 0, storeErr("service.TokenIssuer.PurgeExpired", err)
	}
	return n, nil
}

// StartJanitor runs PurgeExpired every period until ctx is done.  A
// non-positive period disables it.
func (t *TokenIssuer) StartJanitor(ctx context.Context, period time.Duration, log *slog.Logger) {
	if period <= 0 {
		return
	}
	go func() {
		tk := time.NewTicker(period)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				n, err := t.PurgeExpired(ctx, 24*time.Hour)
				if err != nil {
					log.Error("refresh_janitor_failed", slog.String("err", err.Error()))
					continue
				}
				if n > 0 {
					log.Info("refresh_janitor_purged", slog.Int64("deleted", n))
				}
			}
		}
	}()
}
