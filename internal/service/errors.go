package service

import (
	"errors"
	"fmt"

	"alcyxob/fitness-coach/internal/logger"
)

// --- Error Taxonomy ---
// Every error returned by a service wraps exactly one of these so handlers can
// classify it with errors.Is. The wrapped message names the specific rule.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	// ErrUpstream marks document store and LLM failures. Its details never reach the caller.
	ErrUpstream = errors.New("upstream failure")
)

// --- Specific Errors ---
var (
	ErrUserAlreadyExists    = fmt.Errorf("%w: user with this username or email already exists", ErrConflict)
	ErrAuthenticationFailed = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrAlreadyGenerated     = fmt.Errorf("%w: weekly plan already generated for this week", ErrConflict)
	ErrGenerationInProgress = fmt.Errorf("%w: plan generation already in progress for this user", ErrConflict)
	ErrDetailsExist         = fmt.Errorf("%w: user details already exist", ErrConflict)
	ErrNotOnboarded         = fmt.Errorf("%w: user has no training plan, complete onboarding first", ErrNotFound)
	ErrNoPlanForDate        = fmt.Errorf("%w: no weekly plan covers this date", ErrNotFound)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// upstream logs err with its operation context and returns it wrapped in ErrUpstream.
func upstream(log *logger.Logger, op string, err error, keysAndValues ...any) error {
	log.Error("Upstream call failed", append([]any{"op", op, "error", err}, keysAndValues...)...)
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
