package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iliyamo/cafe-ordering/internal/logger"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/repository"
)

// UserStore persists users.  *repository.UserRepo implements it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error
	UpdateName(ctx context.Context, id uint64, name string) error
	UpdateRole(ctx context.Context, id uint64, role string) error
	SetActive(ctx context.Context, id uint64, active bool) error
}

// Hasher hashes and verifies passwords.  *utils.PasswordHasher implements it.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	NeedsRehash(hash string) bool
}

// ProfileCache is the session cache.  *cache.SessionCache implements it.
type ProfileCache interface {
	Get(ctx context.Context, userID uint64) (*model.UserProfile, bool)
	Set(ctx context.Context, userID uint64, p model.UserProfile, ttl time.Duration)
	Invalidate(ctx context.Context, userID uint64)
}

// TokenPair is returned by Refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User model.UserProfile `json:"user"`
	TokenPair
}

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	maxNameLen     = 120
)

// AuthService orchestrates registration, login, refresh, logout, password
// changes and account administration.
type AuthService struct {
	users    UserStore
	hasher   Hasher
	tokens   *TokenIssuer
	sessions ProfileCache
	rec      metrics.Recorder

	decoyOnce sync.Once
	decoy     string
}

// NewAuthService wires an AuthService.  sessions and rec may be nil.
func NewAuthService(users UserStore, hasher Hasher, tokens *TokenIssuer, sessions ProfileCache, rec metrics.Recorder) *AuthService {
	if sessions == nil {
		sessions = nopProfileCache{}
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, sessions: sessions, rec: rec}
}

// decoyHash returns a hash in the hasher's current parameters of a random
// secret nobody knows.  Logins for unknown emails verify against it.
func (s *AuthService) decoyHash(ctx context.Context) string {
	s.decoyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			logger.From(ctx).Error("decoy_hash_failed", slog.Any("err", err))
			return
		}
		s.decoy = h
	})
	return s.decoy
}

// Register creates a CUSTOMER account and signs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	const op = "service.AuthService.Register"

	u, err := s.createUser(ctx, op, name, email, password, model.RoleCustomer)
	if err != nil {
		s.rec.RecordAuth("register", "failure")
		return nil, err
	}
	res, err := s.signIn(ctx, op, u)
	if err != nil {
		return nil, err
	}
	s.rec.RecordAuth("register", "success")
	logger.From(ctx).Info("user_registered", slog.Uint64("user_id", u.ID))
	return res, nil
}

// Login authenticates by email and password.  Unknown email, inactive
// account and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "service.AuthService.Login"
	log := logger.From(ctx)

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%s: %w: email and password are required", op, ErrValidation)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, storeErr(op, err)
		}
		u = nil
	}
	// Every attempt pays for exactly one verification, so response time
	// does not reveal whether the account exists or is active.
	hash := s.decoyHash(ctx)
	if u != nil {
		hash = u.PasswordHash
	}
	matched := s.hasher.Verify(password, hash)
	if u == nil || !u.IsActive || !matched {
		s.rec.RecordAuth("login", "failure")
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	if s.hasher.NeedsRehash(u.PasswordHash) {
		// The login itself already succeeded; a failed upgrade is retried
		// on the next login.
		if h, err := s.hasher.Hash(password); err != nil {
			log.Warn("password_rehash_failed", slog.Uint64("user_id", u.ID), slog.Any("err", err))
		} else if err := s.users.UpdatePasswordHash(ctx, u.ID, h); err != nil {
			log.Warn("password_rehash_failed", slog.Uint64("user_id", u.ID), slog.Any("err", err))
		} else {
			u.PasswordHash = h
			log.Info("password_rehashed", slog.Uint64("user_id", u.ID))
		}
	}

	res, err := s.signIn(ctx, op, u)
	if err != nil {
		return nil, err
	}
	s.sessions.Set(ctx, u.ID, res.User, 0)
	s.rec.RecordAuth("login", "success")
	return res, nil
}

// Refresh exchanges a refresh token for a new pair.  The presented token is
// single-use: its record is revoked by the rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	const op = "service.AuthService.Refresh"

	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	sub, err := s.tokens.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		s.rec.RecordAuth("refresh", "failure")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u, err := s.users.GetByID(ctx, sub.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.rec.RecordAuth("refresh", "failure")
			return nil, fmt.Errorf("%s: %w: user gone", op, ErrUnauthorized)
		}
		return nil, storeErr(op, err)
	}
	if !u.IsActive {
		s.rec.RecordAuth("refresh", "failure")
		return nil, fmt.Errorf("%s: %w: user inactive", op, ErrUnauthorized)
	}

	access, err := s.tokens.IssueAccess(u.Profile())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	refresh, err := s.tokens.RotateRefresh(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			s.rec.RecordAuth("refresh", "failure")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.rec.RecordAuth("refresh", "success")
	return &TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.Exp,
		RefreshToken:     refresh.Raw,
		RefreshExpiresAt: refresh.Exp,
	}, nil
}

// Logout revokes every refresh token of userID and drops the cached
// profile.  Calling it again is harmless.
func (s *AuthService) Logout(ctx context.Context, userID uint64) error {
	const op = "service.AuthService.Logout"

	if err := s.tokens.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.sessions.Invalidate(ctx, userID)
	s.rec.RecordAuth("logout", "success")
	return nil
}

// ChangePassword replaces the password after verifying the current one and
// signs the user out everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	const op = "service.AuthService.ChangePassword"

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		return storeErr(op, err)
	}
	if !s.hasher.Verify(current, u.PasswordHash) {
		s.rec.RecordAuth("change_password", "failure")
		return fmt.Errorf("%s: %w: current password mismatch", op, ErrUnauthorized)
	}
	if err := validatePassword(next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	h, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, h); err != nil {
		return storeErr(op, err)
	}
	s.sessions.Invalidate(ctx, userID)
	if err := s.tokens.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.rec.RecordAuth("change_password", "success")
	logger.From(ctx).Info("password_changed", slog.Uint64("user_id", userID))
	return nil
}

// GetUser returns the profile of userID, consulting the session cache
// first.
func (s *AuthService) GetUser(ctx context.Context, userID uint64) (*model.UserProfile, error) {
	const op = "service.AuthService.GetUser"

	if p, ok := s.sessions.Get(ctx, userID); ok {
		return p, nil
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	p := u.Profile()
	s.sessions.Set(ctx, userID, p, 0)
	return &p, nil
}

// UpdateProfile changes the display name.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, name string) (*model.UserProfile, error) {
	const op = "service.AuthService.UpdateProfile"

	name, err := validateName(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdateName(ctx, userID, name); err != nil {
		return nil, storeErr(op, err)
	}
	s.sessions.Invalidate(ctx, userID)
	return s.GetUser(ctx, userID)
}

// CreateUser is the admin path for creating an account of any role.  No
// tokens are issued.
func (s *AuthService) CreateUser(ctx context.Context, name, email, password, role string) (*model.UserProfile, error) {
	const op = "service.AuthService.CreateUser"

	if !model.ValidRole(role) {
		return nil, fmt.Errorf("%s: %w: unknown role %q", op, ErrValidation, role)
	}
	u, err := s.createUser(ctx, op, name, email, password, role)
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("user_created", slog.Uint64("user_id", u.ID), slog.String("role", role))
	p := u.Profile()
	return &p, nil
}

// SetRole changes the role of userID.  Access tokens already issued keep
// the old role until they expire.
func (s *AuthService) SetRole(ctx context.Context, userID uint64, role string) (*model.UserProfile, error) {
	const op = "service.AuthService.SetRole"

	if !model.ValidRole(role) {
		return nil, fmt.Errorf("%s: %w: unknown role %q", op, ErrValidation, role)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, storeErr(op, err)
	}
	s.sessions.Invalidate(ctx, userID)
	logger.From(ctx).Info("user_role_changed", slog.Uint64("user_id", userID), slog.String("role", role))
	return s.GetUser(ctx, userID)
}

// SetActive activates or deactivates userID.  Deactivation revokes all
// refresh tokens so the account cannot mint new access tokens.
func (s *AuthService) SetActive(ctx context.Context, userID uint64, active bool) (*model.UserProfile, error) {
	const op = "service.AuthService.SetActive"

	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return nil, storeErr(op, err)
	}
	s.sessions.Invalidate(ctx, userID)
	if !active {
		if err := s.tokens.RevokeAll(ctx, userID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	logger.From(ctx).Info("user_active_changed", slog.Uint64("user_id", userID), slog.Bool("active", active))
	return s.GetUser(ctx, userID)
}

func (s *AuthService) createUser(ctx context.Context, op, name, email, password, role string) (*model.User, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	email, err = validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	h, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u := &model.User{Email: email, Name: name, PasswordHash: h, Role: role, IsActive: true}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, storeErr(op, err)
	}
	return u, nil
}

func (s *AuthService) signIn(ctx context.Context, op string, u *model.User) (*AuthResult, error) {
	p := u.Profile()
	access, err := s.tokens.IssueAccess(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	refresh, err := s.tokens.IssueRefresh(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AuthResult{
		User: p,
		TokenPair: TokenPair{
			AccessToken:      access.Token,
			AccessExpiresAt:  access.Exp,
			RefreshToken:     refresh.Raw,
			RefreshExpiresAt: refresh.Exp,
		},
	}, nil
}

// validateEmail trims and lower-cases raw and checks it parses as a bare
// address.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", ErrValidation)
	}
	return strings.ToLower(email), nil
}

func validatePassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if n > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d characters", ErrValidation, maxPasswordLen)
	}
	return nil
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrValidation, maxNameLen)
	}
	return name, nil
}

type nopProfileCache struct{}

func (nopProfileCache) Get(context.Context, uint64) (*model.UserProfile, bool) { return nil, false }
func (nopProfileCache) Set(context.Context, uint64, model.UserProfile, time.Duration) {}
func (nopProfileCache) Invalidate(context.Context, uint64) {}
