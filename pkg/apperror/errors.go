package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string       `json:"error_code"`
	Message    string       `json:"message"`
	Fields     []FieldError `json:"fields,omitempty"`
	HTTPStatus int          `json:"-"`
	Err        error        `json:"-"` // internal cause, never sent to the client
}

// FieldError names one request field that failed validation.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithMessage returns a copy of e carrying a different client-facing message.
func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrWalletNotFound() *AppError {
	return New("WAL_003", "Wallet not found", http.StatusNotFound)
}

func ErrDuplicateRequest() *AppError {
	return New("WAL_004", "Duplicate request", http.StatusConflict)
}

// ---- Checkout (CHK) ----

func ErrEmptyCart() *AppError {
	return New("CHK_001", "Cart is empty", http.StatusUnprocessableEntity)
}

func ErrCartChanged() *AppError {
	return New("CHK_002", "Cart changed during checkout", http.StatusConflict)
}

func ErrCheckoutFailed(err error) *AppError {
	return Wrap("CHK_003", "Checkout failed", http.StatusInternalServerError, err)
}

// ---- Cart (CART) ----

func ErrMenuItemNotFound() *AppError {
	return New("CART_002", "Menu item not found", http.StatusNotFound)
}

func ErrInvalidCartLine(message string) *AppError {
	return New("CART_003", message, http.StatusBadRequest)
}

// ---- Generic ----

func ErrNotFound(entity string) *AppError {
	return New("NF_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// InvalidFields returns a VAL_001 error listing the offending fields.
func InvalidFields(fields []FieldError) *AppError {
	e := New("VAL_001", "Request validation failed", http.StatusBadRequest)
	e.Fields = fields
	return e
}

func ErrPayloadTooLarge() *AppError {
	return New("VAL_002", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New("AUTH_002", "Email already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
