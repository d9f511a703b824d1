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

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the scheduling and commit paths. Commit-time failures
// stay discrete so callers can tell "pick another room/time" apart from
// "retry immediately, you lost a race".
var (
	ErrInvalidInput        = New("INVALID_INPUT", http.StatusBadRequest, "invalid input")
	ErrValidation          = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrRoomNotFound        = New("ROOM_NOT_FOUND", http.StatusNotFound, "room not found")
	ErrBookingNotFound     = New("BOOKING_NOT_FOUND", http.StatusNotFound, "booking not found")
	ErrCapacityExceeded    = New("CAPACITY_EXCEEDED", http.StatusConflict, "room capacity below attendee count")
	ErrMissingEquipment    = New("MISSING_EQUIPMENT", http.StatusConflict, "room lacks required equipment")
	ErrBufferConflict      = New("BUFFER_CONFLICT", http.StatusConflict, "room not available for requested time (buffer conflict)")
	ErrConcurrencyConflict = New("CONCURRENCY_CONFLICT", http.StatusConflict, "concurrent booking attempt won the slot, retry with fresh data")
	ErrInvalidTransition   = New("INVALID_TRANSITION", http.StatusConflict, "booking status transition not allowed")
	ErrCacheMiss           = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrInternal            = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Retryable reports whether the caller may retry the exact same commit after
// refreshing its snapshot. Only lost races qualify; capacity, equipment and
// buffer failures need a different room or time.
func Retryable(err error) bool {
	e := FromError(err)
	return e != nil && e.Code == ErrConcurrencyConflict.Code
}

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
