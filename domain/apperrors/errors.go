// Package apperrors defines the error taxonomy shared by services and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that map it to a transport status
type Kind string

const (
	KindAuth                   Kind = "auth"
	KindValidation             Kind = "validation"
	KindStateConflict          Kind = "state_conflict"
	KindNotFound               Kind = "not_found"
	KindUpstreamTrustViolation Kind = "upstream_trust_violation"
	KindInternal               Kind = "internal"
)

// Code identifies a specific failure within a Kind
type Code string

const (
	// Auth
	CodeMissingPayload      Code = "MissingPayload"
	CodeMissingHash         Code = "MissingHash"
	CodeBadSignature        Code = "BadSignature"
	CodeServerMisconfigured Code = "ServerMisconfigured"
	CodeAdminRequired       Code = "AdminRequired"

	// Validation
	CodeBadRequest   Code = "BadRequest"
	CodeInvalidWager Code = "InvalidWager"
	CodeBelowMinimum Code = "BelowMinimum"

	// State conflict
	CodeInsufficientFunds     Code = "InsufficientFunds"
	CodeAlreadyClaimed        Code = "AlreadyClaimed"
	CodeAccountBlocked        Code = "AccountBlocked"
	CodeTransactionNotPending Code = "TransactionNotPending"

	// Not found
	CodeUserNotFound        Code = "UserNotFound"
	CodeGameNotFound        Code = "GameNotFound"
	CodeOfferNotFound       Code = "OfferNotFound"
	CodeTransactionNotFound Code = "TransactionNotFound"

	// Upstream trust
	CodeForbidden Code = "Forbidden"

	CodeInternal Code = "Internal"
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Code    Code
	Message string

	// NextEligibleInHours is set on AlreadyClaimed
	NextEligibleInHours int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so sentinel comparisons work through wrapping
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New builds an error of the given kind and code
func New(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is comparisons
var (
	ErrInsufficientFunds     = &Error{Kind: KindStateConflict, Code: CodeInsufficientFunds}
	ErrAlreadyClaimed        = &Error{Kind: KindStateConflict, Code: CodeAlreadyClaimed}
	ErrAccountBlocked        = &Error{Kind: KindStateConflict, Code: CodeAccountBlocked}
	ErrTransactionNotPending = &Error{Kind: KindStateConflict, Code: CodeTransactionNotPending}
	ErrInvalidWager          = &Error{Kind: KindValidation, Code: CodeInvalidWager}
	ErrBelowMinimum          = &Error{Kind: KindValidation, Code: CodeBelowMinimum}
	ErrBadRequest            = &Error{Kind: KindValidation, Code: CodeBadRequest}
	ErrUserNotFound          = &Error{Kind: KindNotFound, Code: CodeUserNotFound}
	ErrGameNotFound          = &Error{Kind: KindNotFound, Code: CodeGameNotFound}
	ErrOfferNotFound         = &Error{Kind: KindNotFound, Code: CodeOfferNotFound}
	ErrTransactionNotFound   = &Error{Kind: KindNotFound, Code: CodeTransactionNotFound}
	ErrForbidden             = &Error{Kind: KindUpstreamTrustViolation, Code: CodeForbidden}
)

func InsufficientFunds(available, requested int64) *Error {
	return New(KindStateConflict, CodeInsufficientFunds, "available %d, requested %d", available, requested)
}

func AlreadyClaimed(nextEligibleInHours int) *Error {
	err := New(KindStateConflict, CodeAlreadyClaimed, "next claim in %d hours", nextEligibleInHours)
	err.NextEligibleInHours = nextEligibleInHours
	return err
}

func AccountBlocked(userID int64) *Error {
	return New(KindStateConflict, CodeAccountBlocked, "user %d is blocked", userID)
}

func InvalidWager(format string, args ...any) *Error {
	return New(KindValidation, CodeInvalidWager, format, args...)
}

func BelowMinimum(minimum, requested int64) *Error {
	return New(KindValidation, CodeBelowMinimum, "minimum is %d, requested %d", minimum, requested)
}

func BadRequest(format string, args ...any) *Error {
	return New(KindValidation, CodeBadRequest, format, args...)
}

func UserNotFound(userID int64) *Error {
	return New(KindNotFound, CodeUserNotFound, "user %d not found", userID)
}

func GameNotFound(gameID int64) *Error {
	return New(KindNotFound, CodeGameNotFound, "game %d not found", gameID)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindUpstreamTrustViolation, CodeForbidden, format, args...)
}

func Auth(code Code, format string, args ...any) *Error {
	return New(KindAuth, code, format, args...)
}

// KindOf classifies err, defaulting to KindInternal for unclassified errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extracts the classified error from err's chain
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
