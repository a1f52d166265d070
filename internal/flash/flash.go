// Package flash carries one-shot notices across a redirect.
//
// A notice is written into a short-lived cookie by the handler that
// redirects and consumed by the next page render, so it is shown exactly
// once. Notices are plain text; templates escape them.
package flash

import (
	"encoding/base64"
	"net/http"
)

// CookieName holds the pending notice.
const CookieName = "vidshare_notice"

// Level selects how a notice is styled.
type Level string

const (
	Info  Level = "info"
	Error Level = "error"
)

// Notice is a message shown once on the next page.
type Notice struct {
	Level Level
	Text  string
}

// Set queues text for the next render. A later Set in the same response
// replaces an earlier one.
func Set(w http.ResponseWriter, level Level, text string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(level) + ":" + base64.RawURLEncoding.EncodeToString([]byte(text)),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the queued notice, if any, and deletes the cookie.
func Pop(w http.ResponseWriter, r *http.Request) (Notice, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Notice{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return decode(c.Value)
}

func decode(raw string) (Notice, bool) {
	for _, level := range []Level{Info, Error} {
		prefix := string(level) + ":"
		if len(raw) <= len(prefix) || raw[:len(prefix)] != prefix {
			continue
		}
		text, err := base64.RawURLEncoding.DecodeString(raw[len(prefix):])
		if err != nil || len(text) == 0 {
			return Notice{}, false
		}
		return Notice{Level: level, Text: string(text)}, true
	}
	return Notice{}, false
}
