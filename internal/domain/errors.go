package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors. Typed carriers below match them through errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidQuoteData    = errors.New("invalid quote data")
)

// ValidationError reports malformed or nonsensical input
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError with a formatted reason
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// AuthorizationError is returned when a portfolio does not belong to the caller
type AuthorizationError struct {
	PortfolioID uuid.UUID
	UserID      uuid.UUID
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("access denied: portfolio %s does not belong to user %s", e.PortfolioID, e.UserID)
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrAccessDenied }

// InsufficientBalanceError is returned when a sell exceeds the current holding
type InsufficientBalanceError struct {
	AssetID   uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance to sell %s of asset %s: holding is %s",
		e.Requested.String(), e.AssetID, e.Available.String())
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// NotFoundError wraps ErrNotFound with the entity that was looked up
func NotFoundError(entity string, id any) error {
	return fmt.Errorf("%s %v %w", entity, id, ErrNotFound)
}

// NetworkError is a market-data or exchange call that never produced a response
type NetworkError struct {
	Source string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Source, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a non-success response from a remote provider
type UpstreamError struct {
	Source     string
	StatusCode int // HTTP status
	Code       int // provider error code reported in the body, 0 when absent
	Message    string
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s: upstream returned status %d", e.Source, e.StatusCode)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (error code %d)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}
