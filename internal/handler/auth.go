package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/vidshare/internal/flash"
	"github.com/sakif/vidshare/internal/logging"
	"github.com/sakif/vidshare/internal/view"
)

// AuthHandler manages login, signup and logout.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLoginPage / HandleLogin   → the login form and its submit
//   - HandleSignupPage                → the two-phase signup form
//   - HandleRequestOTP                → phase 1, email a passcode
//   - HandleRegister                  → phase 2, create the account
//   - HandleLogout                    → drop the credential bundle
//
// Login and registration are the only writers of the credential bundle.
type AuthHandler struct {
	*Pages
	logins *view.Authenticator
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(p *Pages, logins *view.Authenticator) *AuthHandler {
	return &AuthHandler{Pages: p, logins: logins}
}

// HandleLoginPage renders the login form.
//
// HTTP: GET /login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	_, authz, ok := h.visitor(w, r)
	if !ok {
		return
	}
	data := newPage("Log in", authz)
	data.Content = view.LoginView{}
	h.render.render(w, r, http.StatusOK, "login", data)
}

// HandleLogin submits the login form.
//
// HTTP: POST /login
// Form: email, password
//
// On success the token pair and email are stored together and the browser
// goes to the profile. On failure the form is shown again with the reason;
// whatever session existed before is left untouched.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	sess, authz, ok := h.visitor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := view.LoginForm{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}

	if err := h.logins.Login(r.Context(), sess, h.api.WithSession(sess), form); err != nil {
		logging.FromContext(r.Context()).Info("login failed", slog.String("error", err.Error()))
		data := newPage("Log in", authz)
		data.Content = view.LoginView{Email: form.Email, Error: view.LoginError(err)}
		h.render.render(w, r, statusFor(err), "login", data)
		return
	}

	flash.Set(w, flash.Info, "Login successful!")
	redirect(w, r, ProfilePath)
}

// HandleSignupPage renders the signup form.
//
// HTTP: GET /signup
func (h *AuthHandler) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	_, authz, ok := h.visitor(w, r)
	if !ok {
		return
	}
	data := newPage("Sign up", authz)
	data.Content = view.SignupView{}
	h.render.render(w, r, http.StatusOK, "signup", data)
}

// HandleRequestOTP asks the API to email a passcode and shows its answer
// verbatim, success or failure.
//
// HTTP: POST /signup/otp
// Form: email
func (h *AuthHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	sess, authz, ok := h.visitor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := view.OTPForm{Email: r.PostForm.Get("email")}

	msg := view.NewSignup(h.api.WithSession(sess), sess).RequestOTP(r.Context(), form)

	data := newPage("Sign up", authz)
	data.Content = view.SignupView{Email: form.Email, Message: msg}
	h.render.render(w, r, http.StatusOK, "signup", data)
}

// HandleRegister creates the account.
//
// HTTP: POST /signup
// Form (multipart): email, otp, username, password, profile_image (optional)
//
// On success the browser goes to the login page, or straight to the profile
// when the API answered with tokens. On failure the form is shown again with
// the serialised rejection or a generic message.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	sess, authz, ok := h.visitor(w, r)
	if !ok {
		return
	}

	staged, err := readMultipart(w, r, h.opts.UploadDir, h.opts.MaxUploadBytes, "profile_image")
	if err != nil {
		data := newPage("Sign up", authz)
		data.Content = view.SignupView{Message: view.RegisterError(err)}
		h.render.render(w, r, statusFor(err), "signup", data)
		return
	}
	defer staged.discard()

	form := view.RegisterForm{
		Email:    staged.values.Get("email"),
		OTP:      staged.values.Get("otp"),
		Username: staged.values.Get("username"),
		Password: staged.values.Get("password"),
	}
	res, err := view.NewSignup(h.api.WithSession(sess), sess).Register(r.Context(), form, staged.file("profile_image"))
	if err != nil {
		logging.FromContext(r.Context()).Info("registration failed", slog.String("error", err.Error()))
		data := newPage("Sign up", authz)
		data.Content = view.SignupView{Email: form.Email, Username: form.Username, Message: view.RegisterError(err)}
		h.render.render(w, r, statusFor(err), "signup", data)
		return
	}

	msg := res.Message
	if msg == "" {
		msg = "Registration successful. Please log in."
	}
	flash.Set(w, flash.Info, msg)
	if res.LoggedIn {
		redirect(w, r, ProfilePath)
		return
	}
	redirect(w, r, "/login")
}

// HandleLogout clears the credential bundle.
//
// HTTP: POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.visitor(w, r)
	if !ok {
		return
	}
	if err := sess.Clear(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("logout", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	flash.Set(w, flash.Info, "You have been logged out.")
	redirect(w, r, "/")
}
