package view

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/sakif/vidshare/internal/api"
	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/model"
	"github.com/sakif/vidshare/internal/session"
)

// TokenIssuer is the part of the API client login uses.
type TokenIssuer interface {
	Login(ctx context.Context, email, password string) (api.TokenPair, error)
}

// LoginForm is the login page's form.
type LoginForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// LoginView is what the login page renders.
type LoginView struct {
	Email string
	Error string
}

const loginFailed = "Login failed. Try again."

// Authenticator runs login submissions. Concurrent identical submissions
// from one session share a single upstream request and its outcome.
type Authenticator struct {
	group singleflight.Group
}

// NewAuthenticator returns an Authenticator.
func NewAuthenticator() *Authenticator {
	return &Authenticator{}
}

// Login posts the credentials and, on success, stores the returned token
// pair with the email as one credential bundle. On failure the session is
// left exactly as it was.
func (a *Authenticator) Login(ctx context.Context, sess *session.Session, issuer TokenIssuer, form LoginForm) error {
	form.Email = strings.TrimSpace(form.Email)
	if verr := Validate(form); verr != nil {
		return verr
	}

	ch := a.group.DoChan(submissionKey(sess.ID(), form), func() (any, error) {
		// Detached so one submitter going away does not fail the others.
		ctx := context.WithoutCancel(ctx)
		pair, err := issuer.Login(ctx, form.Email, form.Password)
		if err != nil {
			return nil, err
		}
		creds := model.Credentials{
			AccessToken:  pair.Access,
			RefreshToken: pair.Refresh,
			Email:        form.Email,
		}
		if err := sess.SetCredentials(ctx, creds); err != nil {
			return nil, fmt.Errorf("view: storing login: %w", err)
		}
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submissionKey identifies one session submitting one set of credentials.
// The password enters only as a digest.
func submissionKey(sid string, form LoginForm) string {
	sum := blake2b.Sum256([]byte(form.Password))
	return sid + "\x00" + form.Email + "\x00" + hex.EncodeToString(sum[:])
}

// LoginError turns a failed Login into the text shown on the form.
func LoginError(err error) string {
	return apperror.UserMessage(err, loginFailed)
}
