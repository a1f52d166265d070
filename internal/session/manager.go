package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/vidshare/internal/repository"
)

// CookieName is the session cookie.
const CookieName = "vidshare_session"

// cookieMaxAge keeps the cookie across browser restarts. The store itself has
// no expiry.
const cookieMaxAge = 400 * 24 * time.Hour

// Manager maps the session cookie to a *Session.
type Manager struct {
	store  repository.SessionRepository
	secure bool
	logger *slog.Logger
}

// NewManager creates a Manager. secure sets the cookie's Secure flag and
// should be true behind HTTPS.
func NewManager(store repository.SessionRepository, secure bool, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		secure: secure,
		logger: logger,
	}
}

// Open returns the session for an existing id.
func (m *Manager) Open(id string) *Session {
	return New(id, m.store)
}

// Middleware puts a *Session on every request context, issuing a fresh
// cookie when the browser has none or sent one that is not an xid.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(CookieName); err == nil {
			if _, err := xid.FromString(c.Value); err == nil {
				id = c.Value
			} else {
				m.logger.Debug("discarding malformed session cookie")
			}
		}

		if id == "" {
			id = xid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := WithSession(r.Context(), m.Open(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
