// Package errors provides the application error taxonomy.
// Service-layer code returns *AppError values so that handlers and the chat
// wizard can map every failure to one response without inspecting strings.
package errors

import (
	stderrors "errors"
	"net/http"
)

// AppError represents a structured application error with an error code,
// user-facing message, HTTP status code, and optional internal error.
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

// Is reports whether target is an AppError with the same code, so that
// errors.Is(err, ErrCategoryNotFound) works on wrapped copies of a sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

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

// IsPersistence reports whether err is an unexpected store failure rather
// than a validation, lookup or conflict outcome.
func IsPersistence(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return true
	}
	return appErr.Code == ErrInternalServer.Code
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "קלט לא תקין", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "המשאב לא נמצא", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "אירעה שגיאה פנימית", StatusCode: http.StatusInternalServerError}
)

// Category errors. Blocked deletions are reported as 400, as the dashboard expects.
var (
	ErrCategoryNotFound         = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "הקטגוריה לא נמצאה", StatusCode: http.StatusNotFound}
	ErrCategoryHasChildren      = &AppError{Code: "CATEGORY_HAS_CHILDREN", Message: "נחסם: יש תת-קטגוריות.", StatusCode: http.StatusBadRequest}
	ErrCategoryHasTransactions  = &AppError{Code: "CATEGORY_HAS_TRANSACTIONS", Message: "נחסם: יש תנועות משויכות.", StatusCode: http.StatusBadRequest}
	ErrCategoryHasFixedExpenses = &AppError{Code: "CATEGORY_HAS_FIXED_EXPENSES", Message: "נחסם: יש הוצאות קבועות.", StatusCode: http.StatusBadRequest}
	ErrCategoryTooDeep          = &AppError{Code: "CATEGORY_TOO_DEEP", Message: "לא ניתן ליצור תת-קטגוריה תחת תת-קטגוריה", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "התנועה לא נמצאה", StatusCode: http.StatusNotFound}
)

// Fixed expense errors.
var (
	ErrFixedExpenseNotFound = &AppError{Code: "FIXED_EXPENSE_NOT_FOUND", Message: "ההוצאה הקבועה לא נמצאה", StatusCode: http.StatusNotFound}
)
