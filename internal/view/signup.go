package view

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/vidshare/internal/api"
	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/model"
	"github.com/sakif/vidshare/internal/session"
)

// Registrar is the part of the API client signup uses.
type Registrar interface {
	RequestOTP(ctx context.Context, email string) (string, error)
	Register(ctx context.Context, reg model.Registration) (api.RegisterResult, error)
}

// OTPForm is the first phase of signup.
type OTPForm struct {
	Email string `form:"email" validate:"required"`
}

// RegisterForm is the second phase of signup. The profile image travels
// separately as a staged file.
type RegisterForm struct {
	Email    string `form:"email" validate:"required"`
	OTP      string `form:"otp" validate:"required"`
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// SignupView is what the signup page renders. Secrets are never echoed.
type SignupView struct {
	Email    string
	Username string
	Message  string
}

const (
	otpFailed          = "Failed to send OTP. Please try again."
	registrationFailed = "Registration failed."
)

// Signup runs the two signup phases. The phases are independent: the server,
// not this client, decides whether an OTP was requested for the email.
type Signup struct {
	api  Registrar
	sess *session.Session
}

// NewSignup binds a signup flow to the visitor's session.
func NewSignup(api Registrar, sess *session.Session) *Signup {
	return &Signup{api: api, sess: sess}
}

// RequestOTP asks for a passcode and returns the message to show verbatim:
// the server's message on success, and on failure the server's message when
// it sent one.
func (s *Signup) RequestOTP(ctx context.Context, form OTPForm) string {
	form.Email = strings.TrimSpace(form.Email)
	if verr := Validate(form); verr != nil {
		return verr.Error()
	}
	msg, err := s.api.RequestOTP(ctx, form.Email)
	if err != nil {
		return apperror.UserMessage(err, otpFailed)
	}
	return msg
}

// RegisterResult says where the visitor goes after a successful registration.
type RegisterResult struct {
	Message string
	// LoggedIn is set when the server returned tokens and they were stored.
	LoggedIn bool
}

// Register submits the registration. On failure the returned error's text
// is what the page shows, see RegisterError.
func (s *Signup) Register(ctx context.Context, form RegisterForm, image *model.FilePart) (RegisterResult, error) {
	form.Email = strings.TrimSpace(form.Email)
	form.Username = strings.TrimSpace(form.Username)
	if verr := Validate(form); verr != nil {
		return RegisterResult{}, verr
	}

	res, err := s.api.Register(ctx, model.Registration{
		Email:        form.Email,
		OTP:          strings.TrimSpace(form.OTP),
		Username:     form.Username,
		Password:     form.Password,
		ProfileImage: image,
	})
	if err != nil {
		return RegisterResult{}, err
	}

	out := RegisterResult{Message: res.Message}
	if res.Access != "" {
		creds := model.Credentials{AccessToken: res.Access, RefreshToken: res.Refresh, Email: form.Email}
		if err := s.sess.SetCredentials(ctx, creds); err != nil {
			return RegisterResult{}, fmt.Errorf("view: storing registration: %w", err)
		}
		out.LoggedIn = true
	}
	return out, nil
}

// RegisterError renders a failed registration: a structured rejection is
// serialised field by field, anything else is the generic text.
func RegisterError(err error) string {
	var verr *apperror.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return registrationFailed
}
