package auth

import (
	"net/http"

	"github.com/sakif/vidshare/internal/flash"
	"github.com/sakif/vidshare/internal/logging"
	"github.com/sakif/vidshare/internal/session"
)

// LoginPath is where anonymous users are sent.
const LoginPath = "/login"

// RequireSession is the route guard.
//
// It renders the wrapped subtree only when Check returns Authorized, and
// otherwise redirects to LoginPath. It reads the session and nothing else:
// no upstream request is issued for an anonymous visitor.
//
// MIDDLEWARE PATTERN:
//
//	r.With(auth.RequireSession).Get("/user-profile", h.HandleProfile)
//
// Chi applies middlewares in a chain: req → Guard → Handler → Guard → resp
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())

		authz, err := Check(r.Context(), sess)
		if err != nil {
			logging.FromContext(r.Context()).Error("route guard: reading session", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if anon, ok := authz.(Anonymous); ok {
			if anon.Reason == Expired {
				flash.Set(w, flash.Error, "Session expired. Please log in again.")
			}
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}
