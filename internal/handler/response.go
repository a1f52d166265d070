package handler

// RESPONSE HELPERS:
// Page actions never answer with an error page. A failed action becomes a
// notice on the page the visitor came from, except for the two auth
// failures, which send the visitor to the login page.
//
// ERROR MAPPING:
//
//	ErrSessionExpired → clear the credential bundle, flash, 303 /login
//	ErrAuthRequired   → flash "You must be logged in to ...", 303 /login
//	anything else     → flash the message, 303 back
//
// errors.Is walks the wrapped chain, so a view returning
// fmt.Errorf("view: ...: %w", apperror.SessionExpired()) still matches.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/auth"
	"github.com/sakif/vidshare/internal/flash"
	"github.com/sakif/vidshare/internal/logging"
	"github.com/sakif/vidshare/internal/session"
)

// sessionExpiredNotice is shown after any authenticated call came back 401.
const sessionExpiredNotice = "Session expired. Please log in again."

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body; once Encode writes, any
// later header change is silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps an action error to the status of a re-rendered form.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrAuthRequired), errors.Is(err, apperror.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrInFlight), errors.Is(err, apperror.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrNetwork), errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// actionFailed turns the error of a page action into a redirect with a
// notice. back is where the visitor returns for ordinary failures.
func actionFailed(w http.ResponseWriter, r *http.Request, sess *session.Session, err error, back, fallback string) {
	switch {
	case errors.Is(err, apperror.ErrSessionExpired):
		expireSession(w, r, sess)
	case errors.Is(err, apperror.ErrAuthRequired):
		flash.Set(w, flash.Error, apperror.UserMessage(err, "You must be logged in."))
		redirect(w, r, auth.LoginPath)
	default:
		if !errors.Is(err, apperror.ErrValidation) && !errors.Is(err, apperror.ErrInFlight) &&
			!errors.Is(err, apperror.ErrNotReady) {
			logging.FromContext(r.Context()).Warn("page action failed",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
		}
		flash.Set(w, flash.Error, apperror.UserMessage(err, fallback))
		redirect(w, r, back)
	}
}

// expireSession drops the credential bundle as a unit and sends the visitor
// to log in again.
func expireSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Clear(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("clearing expired session", slog.String("error", err.Error()))
	}
	flash.Set(w, flash.Error, sessionExpiredNotice)
	redirect(w, r, auth.LoginPath)
}
