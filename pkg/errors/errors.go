package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones with custom
// messages still match their predefined error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUnavailable        = New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Slot editor rejections.
var (
	ErrNoSourceAssignment   = New("NO_SOURCE_ASSIGNMENT", http.StatusUnprocessableEntity, "no assignment at source position")
	ErrDestinationOccupied  = New("DESTINATION_OCCUPIED", http.StatusConflict, "destination position is already occupied")
	ErrTeacherDoubleBooked  = New("TEACHER_DOUBLE_BOOKED", http.StatusConflict, "teacher is already teaching another subject at that time")
	ErrPendingStagedItems   = New("PENDING_STAGED_ITEMS", http.StatusPreconditionFailed, "staging area must be empty before saving")
	ErrPersistenceFailure   = New("PERSISTENCE_FAILURE", http.StatusBadGateway, "failed to persist plan slots")
	ErrSaveInProgress       = New("SAVE_IN_PROGRESS", http.StatusConflict, "a save is already in progress")
	ErrClassMismatch        = New("CLASS_MISMATCH", http.StatusBadRequest, "assignments cannot change class")
	ErrStagingItemNotFound  = New("STAGING_ITEM_NOT_FOUND", http.StatusNotFound, "staging item not found")
	ErrInvalidMove          = New("INVALID_MOVE", http.StatusBadRequest, "unsupported move")
	ErrSessionNotEditing    = New("SESSION_NOT_EDITING", http.StatusConflict, "session is not editing")
	ErrSessionLimitExceeded = New("SESSION_LIMIT_EXCEEDED", http.StatusServiceUnavailable, "too many open editing sessions")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
