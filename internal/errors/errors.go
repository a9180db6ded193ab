// Package errors provides custom error types for the meterku API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Reading errors.
var (
	ErrReadingNotFound     = &AppError{Code: "READING_NOT_FOUND", Message: "Reading not found", StatusCode: http.StatusNotFound}
	ErrDuplicateDate       = &AppError{Code: "DUPLICATE_DATE", Message: "A reading already exists for this date", StatusCode: http.StatusConflict}
	ErrTopUpFieldsRequired = &AppError{Code: "TOPUP_FIELDS_REQUIRED", Message: "A top-up entry requires a token cost", StatusCode: http.StatusBadRequest}
	ErrKindChange          = &AppError{Code: "KIND_CHANGE_NOT_ALLOWED", Message: "Cannot change an entry between reading and top-up; delete and re-create instead", StatusCode: http.StatusBadRequest}
)

// Recalculation errors.
var (
	ErrBatchNotFound     = &AppError{Code: "BATCH_NOT_FOUND", Message: "Recalculation batch not found", StatusCode: http.StatusNotFound}
	ErrBackdateBlocked   = &AppError{Code: "BACKDATE_BLOCKED", Message: "Backdated change would corrupt later readings", StatusCode: http.StatusUnprocessableEntity}
	ErrRollbackExpired   = &AppError{Code: "ROLLBACK_EXPIRED", Message: "The rollback window for this batch has expired", StatusCode: http.StatusConflict}
	ErrAlreadyRolledBack = &AppError{Code: "ALREADY_ROLLED_BACK", Message: "This batch has already been rolled back", StatusCode: http.StatusConflict}
)
