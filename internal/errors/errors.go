// Package errors provides custom error types for the ledgerbook API.
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

// General errors.
var (
	ErrValidation     = &AppError{Code: "VALIDATION_ERROR", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrRateLimited    = &AppError{Code: "RATE_LIMITED", Message: "Too many requests", StatusCode: http.StatusTooManyRequests}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Asset category errors.
var (
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Asset category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse    = &AppError{Code: "CATEGORY_IN_USE", Message: "Asset category is referenced by existing ledgers", StatusCode: http.StatusConflict}
)

// Ledger errors.
var (
	ErrLedgerNotFound = &AppError{Code: "LEDGER_NOT_FOUND", Message: "Ledger not found", StatusCode: http.StatusNotFound}
	ErrLedgerInUse    = &AppError{Code: "LEDGER_IN_USE", Message: "Ledger is linked to other ledgers by transfers", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrTransactionInUse       = &AppError{Code: "TRANSACTION_IN_USE", Message: "Transaction is realized by another transaction", StatusCode: http.StatusConflict}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
	ErrInvalidTypeChange      = &AppError{Code: "INVALID_TYPE_CHANGE", Message: "Cannot change transaction type to or from transfer", StatusCode: http.StatusBadRequest}
	ErrInvalidTransfer        = &AppError{Code: "INVALID_TRANSFER", Message: "Invalid transfer target", StatusCode: http.StatusBadRequest}
	ErrTransferFailed         = &AppError{Code: "TRANSFER_FAILED", Message: "Transfer could not be applied and was rolled back", StatusCode: http.StatusConflict}
)

// Snapshot errors.
var (
	ErrSnapshotNotFound = &AppError{Code: "SNAPSHOT_NOT_FOUND", Message: "Snapshot not found", StatusCode: http.StatusNotFound}
)
