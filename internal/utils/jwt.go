package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 hashing for refresh tokens
	"encoding/hex"  // hex encoding of digests
	"errors"
	"fmt"
	"strconv"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Token type markers carried in the "typ" claim.  They stop a refresh token
// from being accepted where an access token is expected and vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a signed refresh token bound to a stored record.
// Raw is returned to the client; only its SHA‑256 hash is persisted.
type RefreshToken struct {
	Raw      string    // raw token string returned to the client
	RecordID string    // refresh_tokens.id, carried as jti
	Exp      time.Time // UTC expiration time
}

// AccessClaims is the claim set of an access token.  Subject holds the
// decimal user id.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *AccessClaims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// RefreshClaims is the claim set of a refresh token.  Subject holds the
// user id and ID (jti) the refresh record id.
type RefreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenSigner signs and parses HS256 tokens with a fixed issuer and
// audience.  The clock is injectable so issuance is deterministic in tests.
type TokenSigner struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenSigner builds a signer.  A nil clock means time.Now.
func NewTokenSigner(accessSecret, refreshSecret, issuer, audience string, accessTTL, refreshTTL time.Duration, now func() time.Time) *TokenSigner {
	if now == nil {
		now = time.Now
	}
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}
	return &TokenSigner{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		audience:      audience,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           now,
	}
}

// Now returns the signer's current UTC time.
func (s *TokenSigner) Now() time.Time { return s.now().UTC() }

// RefreshTTL returns the configured refresh lifetime.
func (s *TokenSigner) RefreshTTL() time.Duration { return s.refreshTTL }

// SignAccess builds and signs an access token for a user.
func (s *TokenSigner) SignAccess(userID uint64, email, role string) (AccessToken, error) {
	now := s.Now().Truncate(time.Second)
	exp := now.Add(s.accessTTL)
	claims := AccessClaims{
		Email: email,
		Role:  role,
		Type:  TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// SignRefresh signs a refresh token bound to recordID.
func (s *TokenSigner) SignRefresh(userID uint64, recordID string) (RefreshToken, error) {
	now := s.Now().Truncate(time.Second)
	exp := now.Add(s.refreshTTL)
	claims := RefreshClaims{
		Type: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        recordID,
			Subject:   strconv.FormatUint(userID, 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: signed, RecordID: recordID, Exp: exp}, nil
}

// ParseAccess verifies signature, method, issuer, audience and expiry of an
// access token.
func (s *TokenSigner) ParseAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, keyFunc(s.accessSecret), s.parserOptions()...); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, errors.New("not an access token")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("bad subject: %w", err)
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token's signature and registered claims.
// It does not consult storage.
func (s *TokenSigner) ParseRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, keyFunc(s.refreshSecret), s.parserOptions()...); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, errors.New("not a refresh token")
	}
	if claims.ID == "" {
		return nil, errors.New("missing jti")
	}
	return claims, nil
}

func (s *TokenSigner) parserOptions() []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
}

func keyFunc(secret []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Storing only the hash in the database prevents attackers from
// using stolen database entries to refresh sessions.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
