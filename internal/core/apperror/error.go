// Package apperror provides structured error handling for the spare movement engine.
// Every error that crosses a service boundary must be an AppError so the API layer
// can render a stable {code, message, details} body.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Each code maps onto one error kind of the taxonomy.
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Capacity (422)
	CodeInsufficientStock = "INSUFFICIENT_STOCK"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// State conflicts (409)
	CodeStateConflict = "STATE_CONFLICT"
	CodeReadOnly      = "REQUEST_READ_ONLY"
	CodeIdempotency   = "IDEMPOTENCY_CONFLICT"
)

// Kind groups codes into the error taxonomy used by callers that branch on errors.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindStateConflict Kind = "state_conflict"
	KindCapacity      Kind = "capacity"
	KindPersistence   Kind = "persistence"
	KindInternal      Kind = "internal"
)

// AppError is the standard error type of the service.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, statuses)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// Kind reports which taxonomy bucket the error belongs to.
func (e *AppError) Kind() Kind {
	switch e.Code {
	case CodeValidation:
		return KindValidation
	case CodeNotFound:
		return KindNotFound
	case CodeForbidden, CodeUnauthorized:
		return KindAuthorization
	case CodeStateConflict, CodeReadOnly, CodeIdempotency:
		return KindStateConflict
	case CodeInsufficientStock:
		return KindCapacity
	case CodeDatabase:
		return KindPersistence
	default:
		return KindInternal
	}
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientStock is returned when a transfer would drive a pool below zero.
func NewInsufficientStock(spareID int64, location string, requestedGood, requestedDefective, availableGood, availableDefective int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock at source location",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"spare_id":            spareID,
			"location":            location,
			"requested_good":      requestedGood,
			"requested_defective": requestedDefective,
			"available_good":      availableGood,
			"available_defective": availableDefective,
		},
	}
}

// NewStateConflict is returned when a transition is attempted from an illegal status.
func NewStateConflict(entity string, id any, current, attempted string) *AppError {
	return &AppError{
		Code:       CodeStateConflict,
		Message:    fmt.Sprintf("cannot %s %s in status %s", attempted, entity, current),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"entity":         entity,
			"id":             id,
			"current_status": current,
			"transition":     attempted,
		},
	}
}

// NewReadOnly is returned for any mutation of a verified or reopened request.
func NewReadOnly(entity string, id any, current string) *AppError {
	return &AppError{
		Code:       CodeReadOnly,
		Message:    fmt.Sprintf("%s is read-only in status %s", entity, current),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"entity":         entity,
			"id":             id,
			"current_status": current,
		},
	}
}

// NewPersistence wraps a storage failure. The cause is logged, never rendered.
func NewPersistence(err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "Storage failure, the operation was rolled back",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request.
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Wrap returns err unchanged when it already is an AppError and wraps it
// as a persistence error otherwise. Nil stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsAppError(err); ok {
		return err
	}
	return NewPersistence(err)
}

// KindOf returns the taxonomy bucket of any error.
func KindOf(err error) Kind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind()
	}
	return KindInternal
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsStateConflict reports both plain conflicts and read-only violations.
func IsStateConflict(err error) bool {
	return KindOf(err) == KindStateConflict
}

// IsReadOnly checks if error is CodeReadOnly
func IsReadOnly(err error) bool {
	return hasCode(err, CodeReadOnly)
}

// IsInsufficientStock checks if error is CodeInsufficientStock
func IsInsufficientStock(err error) bool {
	return hasCode(err, CodeInsufficientStock)
}

// IsForbidden checks if error is CodeForbidden
func IsForbidden(err error) bool {
	return hasCode(err, CodeForbidden)
}

// IsValidation checks if error is CodeValidation
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
