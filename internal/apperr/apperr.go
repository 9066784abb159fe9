package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the challenge engine. Services wrap these with %w so
// handlers can translate them to HTTP statuses via errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrDanglingReference = errors.New("dangling reference")
)

func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func InvalidTransitionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

func ChallengeExpiredf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrChallengeExpired, fmt.Sprintf(format, args...))
}

func DanglingReferencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDanglingReference, fmt.Sprintf(format, args...))
}
