package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/auth"
	"github.com/sakif/vidshare/internal/flash"
	"github.com/sakif/vidshare/internal/logging"
	"github.com/sakif/vidshare/internal/model"
	"github.com/sakif/vidshare/internal/session"
	"github.com/sakif/vidshare/internal/view"
)

// ProfilePath is the signed-in user's page.
const ProfilePath = "/user-profile"

// ProfileHandler serves the profile page and its upload modal. Every route
// sits behind auth.RequireSession.
type ProfileHandler struct {
	*Pages
	profiles *view.Registry[*view.Profile]
}

// NewProfileHandler creates a ProfileHandler holding its page instances in
// profiles.
func NewProfileHandler(p *Pages, profiles *view.Registry[*view.Profile]) *ProfileHandler {
	return &ProfileHandler{Pages: p, profiles: profiles}
}

// profilePage is the profile template's data.
type profilePage struct {
	view.ProfileView
	PageID string
}

// instance returns the live page for the request or mounts a new one. The
// page must belong to the session and to the email now signed in.
func (h *ProfileHandler) instance(r *http.Request, sess *session.Session, a auth.Authorized) (*view.Profile, string) {
	pid := r.URL.Query().Get(pageParam)
	if p, ok := h.profiles.Get(pid, sess.ID()); ok && p.Email() == a.Email {
		return p, pid
	}
	p := view.NewProfile(h.api.WithSession(sess), a.Email)
	p.Mount(r.Context())
	return p, h.profiles.Put(sess.ID(), p)
}

// signedIn resolves the visitor, who must be authorized. The route guard
// has already checked this; a session that changed in between is sent back
// to the login page.
func (h *ProfileHandler) signedIn(w http.ResponseWriter, r *http.Request) (*session.Session, auth.Authorized, bool) {
	sess, authz, ok := h.visitor(w, r)
	if !ok {
		return nil, auth.Authorized{}, false
	}
	a, ok := authz.(auth.Authorized)
	if !ok {
		redirect(w, r, auth.LoginPath)
		return nil, auth.Authorized{}, false
	}
	return sess, a, true
}

// HandleProfile renders the profile.
//
// HTTP: GET /user-profile?p=<instance>
//
// While an upload runs the page renders with the blocking overlay and keeps
// refreshing until the upload settles.
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	sess, a, ok := h.signedIn(w, r)
	if !ok {
		return
	}
	p, pid := h.instance(r, sess, a)

	settled := p.Wait(r.Context(), h.opts.RenderWait)
	if p.SessionExpired() {
		h.profiles.Remove(pid)
		expireSession(w, r, sess)
		return
	}

	data := newPage("Profile", a)
	pv := p.View()
	if !settled {
		data.RefreshURL = pageURL(ProfilePath, pid)
	}
	if pv.Notice != nil {
		level := flash.Info
		if pv.Notice.Error {
			level = flash.Error
		}
		data.notify(level, pv.Notice.Text)
	}
	data.Overlay = pv.Uploading
	data.Content = profilePage{ProfileView: pv, PageID: pid}
	h.render.render(w, r, http.StatusOK, "profile", data)
}

// HandleOpenUpload shows the upload modal.
//
// HTTP: POST /user-profile/upload/open?p=<instance>
func (h *ProfileHandler) HandleOpenUpload(w http.ResponseWriter, r *http.Request) {
	sess, a, ok := h.signedIn(w, r)
	if !ok {
		return
	}
	p, pid := h.instance(r, sess, a)
	back := pageURL(ProfilePath, pid)
	if err := p.OpenModal(); err != nil {
		actionFailed(w, r, sess, err, back, "Could not open the upload form.")
		return
	}
	redirect(w, r, back)
}

// HandleCloseUpload hides the upload modal and discards the draft.
//
// HTTP: POST /user-profile/upload/close?p=<instance>
func (h *ProfileHandler) HandleCloseUpload(w http.ResponseWriter, r *http.Request) {
	sess, a, ok := h.signedIn(w, r)
	if !ok {
		return
	}
	p, pid := h.instance(r, sess, a)
	back := pageURL(ProfilePath, pid)
	if err := p.CloseModal(); err != nil {
		actionFailed(w, r, sess, err, back, "Could not close the upload form.")
		return
	}
	redirect(w, r, back)
}

// HandleUpload stages the submitted files and starts the upload.
//
// HTTP: POST /user-profile/upload?p=<instance>
// Form (multipart): title, description, video_file, thumbnail
//
// The upload runs in the background; the redirect lands on a page carrying
// the overlay. A draft failing the required-field check stays in the open
// modal with its error text.
func (h *ProfileHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	sess, a, ok := h.signedIn(w, r)
	if !ok {
		return
	}
	p, pid := h.instance(r, sess, a)
	back := pageURL(ProfilePath, pid)

	form, err := readMultipart(w, r, h.opts.UploadDir, h.opts.MaxUploadBytes, "video_file", "thumbnail")
	if err != nil {
		actionFailed(w, r, sess, err, back, "Upload failed")
		return
	}

	draft := model.UploadDraft{
		Title:       form.values.Get("title"),
		Description: form.values.Get("description"),
		VideoFile:   form.file("video_file"),
		Thumbnail:   form.file("thumbnail"),
	}
	if err := p.Upload(r.Context(), draft); err != nil {
		logging.FromContext(r.Context()).Debug("upload not started", slog.String("error", err.Error()))
		var verr *apperror.ValidationError
		if errors.As(err, &verr) {
			// The modal shows the draft's error.
			redirect(w, r, back)
			return
		}
		actionFailed(w, r, sess, err, back, "Upload failed")
		return
	}
	redirect(w, r, back)
}
