package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/vidshare/internal/session"
)

// Authorization is the outcome of Check: either Authorized or Anonymous.
// Guarded actions switch on the concrete type instead of testing a bool.
type Authorization interface {
	authorization()
}

// Authorized carries what an authenticated request needs.
type Authorized struct {
	Email string
	Token string
}

// Reason says why a session is anonymous.
type Reason int

const (
	// NoToken means no credentials were ever stored, or they were cleared.
	NoToken Reason = iota
	// Expired means a token is stored but its exp claim has passed.
	Expired
)

func (r Reason) String() string {
	switch r {
	case NoToken:
		return "no token"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Anonymous is the outcome for a session that may not act as a user.
type Anonymous struct {
	Reason Reason
}

func (Authorized) authorization() {}
func (Anonymous) authorization()  {}

// Check reads the session's credentials and classifies them.
// A store error is returned as is; the caller decides whether to fail the
// request or treat the user as anonymous.
func Check(ctx context.Context, s *session.Session) (Authorization, error) {
	return CheckAt(ctx, s, time.Now())
}

// CheckAt is Check with an explicit clock.
func CheckAt(ctx context.Context, s *session.Session, now time.Time) (Authorization, error) {
	if s == nil {
		return Anonymous{Reason: NoToken}, nil
	}
	creds, err := s.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: reading credentials: %w", err)
	}
	if creds.Anonymous() {
		return Anonymous{Reason: NoToken}, nil
	}
	if TokenExpired(creds.AccessToken, now) {
		return Anonymous{Reason: Expired}, nil
	}
	return Authorized{Email: creds.Email, Token: creds.AccessToken}, nil
}

// IsAuthorized is a shorthand for templates and logging.
func IsAuthorized(a Authorization) bool {
	_, ok := a.(Authorized)
	return ok
}
