// Package apperror defines the error taxonomy shared by the API client, the
// view controllers and the HTTP handlers.
//
// Every failure surfaced by the upstream REST API is converted into one of the
// sentinels below. Callers branch with errors.Is (which kind of failure?) and
// errors.As (what did the server say?).
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNetwork means the request never completed.
	ErrNetwork = errors.New("network failure")
	// ErrAuthRequired means the action needs a token the user does not have.
	// It is raised before any request is sent.
	ErrAuthRequired = errors.New("authentication required")
	// ErrSessionExpired means the server answered 401 to an authenticated call.
	ErrSessionExpired = errors.New("session expired")
	// ErrValidation means the server (or a local required-field check)
	// rejected the input with a structured payload.
	ErrValidation = errors.New("validation rejected")
	// ErrNotFound means the resource is empty or absent.
	ErrNotFound = errors.New("not found")
	// ErrUpstream covers every other non-2xx answer.
	ErrUpstream = errors.New("upstream error")
	// ErrInFlight means an identical action is still running.
	ErrInFlight = errors.New("request already in flight")
	// ErrNotReady means the page has no loaded data to act on yet.
	ErrNotReady = errors.New("page not ready")
)

type AppError struct {
	Err     error  // sentinel
	Message string // human-readable, safe to show
	Status  int    // upstream HTTP status, 0 when no response was received
}

func (e *AppError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Status != 0:
		return fmt.Sprintf("%v (status %d)", e.Err, e.Status)
	default:
		return e.Err.Error()
	}
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Network wraps a transport error. The cause is kept in the message for logs;
// views show their own generic text.
func Network(cause error) *AppError {
	return &AppError{
		Err:     ErrNetwork,
		Message: fmt.Sprintf("network failure: %v", cause),
	}
}

// AuthRequired builds the notice shown when an anonymous user attempts action,
// e.g. AuthRequired("like a video").
func AuthRequired(action string) *AppError {
	return &AppError{
		Err:     ErrAuthRequired,
		Message: fmt.Sprintf("You must be logged in to %s.", action),
	}
}

func SessionExpired() *AppError {
	return &AppError{
		Err:     ErrSessionExpired,
		Message: "Session expired. Please log in again.",
		Status:  401,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
		Status:  404,
	}
}

// Upstream reports a non-2xx answer that carried no structured payload.
// message may be empty.
func Upstream(status int, message string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
		Status:  status,
	}
}

func InFlight(action string) *AppError {
	return &AppError{
		Err:     ErrInFlight,
		Message: fmt.Sprintf("%s is already in progress", action),
	}
}

// NotReady reports an action refused because what it needs has not loaded,
// e.g. NotReady("Your profile").
func NotReady(what string) *AppError {
	return &AppError{
		Err:     ErrNotReady,
		Message: fmt.Sprintf("%s has not loaded yet. Please try again.", what),
	}
}

// ValidationError is a structured rejection: a mapping from field name to the
// messages reported for that field. Message carries the payload's top-level
// "message"/"detail" text when there was one.
type ValidationError struct {
	Fields  map[string][]string
	Message string
	Status  int
}

// ValidationFailed builds a single-field rejection for local required-field
// checks.
func ValidationFailed(field, message string) *ValidationError {
	return &ValidationError{
		Fields: map[string][]string{field: {message}},
		Status: 400,
	}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Lines renders one "field: msg, msg" line per field, sorted by field name,
// so the same payload always renders the same way.
func (e *ValidationError) Lines() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+": "+strings.Join(e.Fields[name], ", "))
	}
	return lines
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message != "" {
			return e.Message
		}
		return ErrValidation.Error()
	}
	return strings.Join(e.Lines(), "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// UserMessage returns the text a view shows for err, falling back to fallback
// when err carries nothing presentable.
func UserMessage(err error, fallback string) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		if verr.Message != "" {
			return verr.Message
		}
		return verr.Error()
	}
	var appErr *AppError
	if errors.As(err, &appErr) && !errors.Is(err, ErrNetwork) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
