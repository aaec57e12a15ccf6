// Package apperror provides the error taxonomy for the user service. Every
// failure that reaches a client is an AppError carrying a stable business code
// and a message safe to show to the client. The echo error handler turns them
// into the response envelope.
//
// NEVER return raw database or infrastructure errors to the client. Always
// wrap them with NewInternal so the cause is logged and the client only sees
// the generic failure code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError for the boundary layer.
type Kind int

const (
	// KindBusiness is an expected, named failure (wrong password, duplicate
	// username). Surfaced in-band with a normal transport status.
	KindBusiness Kind = iota

	// KindValidation is malformed input rejected before the core runs.
	KindValidation

	// KindInternal is an infrastructure failure (store or cache unreachable).
	KindInternal
)

// Business codes. 2xxx means success, 4xxx a failure caused by the caller,
// 5xxx a failure caused by the system.
const (
	CodeSuccess           = "2000"
	CodeFail              = "5000"
	CodeDuplicateUsername = "4001"
	CodeSessionInvalid    = "4003"
	CodeTooManyRequests   = "4005"
	CodeUserNotFound      = "4006"
	CodePasswordMismatch  = "4007"
	CodeValidation        = "4008"
	CodeRequestRejected   = "4009"
)

// MessageSuccess is the message paired with CodeSuccess.
const MessageSuccess = "ok"

// FieldError is a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the error type for all domain failures.
type AppError struct {
	// Kind tells the boundary how to treat the error.
	Kind Kind `json:"-"`

	// Code is the machine-readable business code clients branch on.
	Code string `json:"code"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Status is the HTTP status used when writing the envelope.
	Status int `json:"-"`

	// Fields lists per-field failures for KindValidation.
	Fields []FieldError `json:"fields,omitempty"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is matches two AppErrors by business code so callers can write
// errors.Is(err, apperror.NewUserNotFound()).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// --- Business failures ---

func newBusiness(code, message string) *AppError {
	return &AppError{
		Kind:    KindBusiness,
		Code:    code,
		Message: message,
		Status:  http.StatusOK,
	}
}

// NewDuplicateUsername is returned when registering a taken username.
func NewDuplicateUsername() *AppError {
	return newBusiness(CodeDuplicateUsername, "username already exists")
}

// NewUserNotFound is returned when no account matches a username or id.
func NewUserNotFound() *AppError {
	return newBusiness(CodeUserNotFound, "user does not exist")
}

// NewPasswordMismatch is returned when a password does not match the stored hash.
func NewPasswordMismatch() *AppError {
	return newBusiness(CodePasswordMismatch, "password is incorrect")
}

// NewSessionInvalid is returned when a session token is missing, was never
// issued, or has expired.
func NewSessionInvalid() *AppError {
	return newBusiness(CodeSessionInvalid, "session invalid or expired")
}

// NewTooManyRequests is returned by the rate limiter.
func NewTooManyRequests() *AppError {
	return &AppError{
		Kind:    KindBusiness,
		Code:    CodeTooManyRequests,
		Message: "too many requests, please try again later",
		Status:  http.StatusTooManyRequests,
	}
}

// NewValidation creates a 400 error listing the fields that failed validation.
func NewValidation(fields []FieldError) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: "parameter validation failed",
		Status:  http.StatusBadRequest,
		Fields:  fields,
	}
}

// NewBadRequest creates a validation error without field detail, used when the
// request body cannot be bound at all.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewRequestRejected is for requests refused by the router before any handler
// runs, such as an unknown route or a method the route does not serve. The
// status is echo's (404, 405, 413...).
func NewRequestRejected(status int, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    CodeRequestRejected,
		Message: message,
		Status:  status,
	}
}

// --- Infrastructure failures ---

// NewInternal creates a 500 error. The real error is stored in Internal for
// logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Kind:     KindInternal,
		Code:     CodeFail,
		Message:  "business execution failed",
		Status:   http.StatusInternalServerError,
		Internal: err,
	}
}

// IsBusiness reports whether err is an AppError of KindBusiness.
func IsBusiness(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == KindBusiness
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// From converts any error into an AppError. Non-AppErrors become internal
// failures so their detail never reaches the client.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

// SafeMessage returns the client-safe error message from an error. For any
// non-AppError it returns the generic failure message to prevent leaking
// internal details like table names or query structure.
func SafeMessage(err error) string {
	return From(err).Message
}
