// Package service holds the café's business logic: the credential
// lifecycle (AuthService, TokenIssuer) and the order lifecycle
// (OrderService).  Services are safe for concurrent use provided the
// stores handed to them are.
//
// Every failure returned from this package wraps exactly one of the
// sentinels below; transports map them with errors.Is.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/utils"
)

var (
	// ErrValidation: malformed input.  HTTP 400.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized: bad credentials or an unusable token.  HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden: authenticated but the role is insufficient.  HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound: missing user, order or menu item.  HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrConflict: duplicate email, illegal status transition, cancel of a
	// terminal order or a lost status race.  HTTP 409.
	ErrConflict = errors.New("conflict")

	// ErrInfrastructure: store or upstream unreachable.  HTTP 500/503.
	ErrInfrastructure = errors.New("infrastructure failure")

	// ErrInvalidToken is an ErrUnauthorized raised by token validation.
	ErrInvalidToken = fmt.Errorf("invalid token: %w", ErrUnauthorized)

	// ErrHashingFailure is returned when the password hasher cannot run.
	ErrHashingFailure = utils.ErrHashingFailure
)

// storeErr translates a repository error into the service taxonomy.
// Known repository sentinels map to their service counterpart; anything
// else is an infrastructure failure.  The original error stays in the
// chain for logging.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.Is(err, repository.ErrEmailExists), errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	case errors.Is(err, repository.ErrTokenInactive):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrInfrastructure, err)
	}
}
