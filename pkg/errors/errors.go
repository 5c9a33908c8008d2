// Package errors holds the platform's sentinel errors and the rules for
// turning them into HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Request and lookup failures.
var (
	ErrPostNotFound  = errors.New("post not found")
	ErrPostExists    = errors.New("post already exists")
	ErrUnknownEntity = errors.New("unknown entity")
	ErrInvalidInput  = errors.New("invalid input")
	ErrBatchTooLarge = errors.New("batch too large")
	ErrRateLimited   = errors.New("rate limit exceeded")
)

// Dependency and scoring failures.
var (
	ErrCircuitOpen    = errors.New("dependency unavailable")
	ErrTimeout        = errors.New("operation timed out")
	ErrLexiconLoad    = errors.New("lexicon load failed")
	ErrScoringPanic   = errors.New("scoring panicked")
	ErrStoreUnwritten = errors.New("analysis not persisted")
	ErrInternal       = errors.New("internal error")
)

// statusTable is checked in order; the first sentinel err wraps decides the
// status.
var statusTable = []struct {
	sentinel error
	status   int
}{
	{ErrPostNotFound, http.StatusNotFound},
	{ErrUnknownEntity, http.StatusNotFound},
	{ErrPostExists, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrBatchTooLarge, http.StatusRequestEntityTooLarge},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrCircuitOpen, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusServiceUnavailable},
}

// AppError pins a sentinel to a status and a message that is safe to return
// to API clients.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// New returns an AppError for sentinel.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

// Newf is New with a formatted message.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// HTTPStatusCode picks the response status for err: an AppError's own code,
// else the status of the first known sentinel it wraps, else 500.
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	for _, row := range statusTable {
		if errors.Is(err, row.sentinel) {
			return row.status
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage is the text a handler may send for err. Errors that map to
// 500 never leak their detail.
func PublicMessage(err error) string {
	if HTTPStatusCode(err) == http.StatusInternalServerError {
		return http.StatusText(http.StatusInternalServerError)
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	for _, row := range statusTable {
		if errors.Is(err, row.sentinel) {
			return row.sentinel.Error()
		}
	}
	return err.Error()
}
