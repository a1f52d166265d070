package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/model"
	"github.com/sakif/vidshare/internal/session"
	"github.com/sakif/vidshare/internal/view"
)

// VideoHandler serves a video's detail page and its like and comment
// actions.
type VideoHandler struct {
	*Pages
	videos *view.Registry[*view.VideoDetail]
}

// NewVideoHandler creates a VideoHandler holding its page instances in
// videos.
func NewVideoHandler(p *Pages, videos *view.Registry[*view.VideoDetail]) *VideoHandler {
	return &VideoHandler{Pages: p, videos: videos}
}

// videoPage is the video template's data.
type videoPage struct {
	view.VideoView
	PageID     string
	Authorized bool
}

// instance returns the live page for the request or mounts a new one. The
// page must belong to the session and show the video in the URL.
func (h *VideoHandler) instance(r *http.Request, sess *session.Session) (*view.VideoDetail, string) {
	id := model.ID(chi.URLParam(r, "id"))
	pid := r.URL.Query().Get(pageParam)
	if v, ok := h.videos.Get(pid, sess.ID()); ok && v.ID() == id {
		return v, pid
	}
	v := view.NewVideoDetail(h.api.WithSession(sess), id)
	v.Mount(r.Context())
	return v, h.videos.Put(sess.ID(), v)
}

func videoPath(id model.ID) string {
	return "/video/" + id.String()
}

// HandleVideo renders the detail page.
//
// HTTP: GET /video/{id}?p=<instance>
//
// The video and its comments load independently; the page renders whatever
// has arrived once both settle or the render wait runs out.
func (h *VideoHandler) HandleVideo(w http.ResponseWriter, r *http.Request) {
	sess, authz, ok := h.visitor(w, r)
	if !ok {
		return
	}
	v, pid := h.instance(r, sess)

	data := newPage("Video", authz)
	if !v.Wait(r.Context(), h.opts.RenderWait) {
		data.RefreshURL = pageURL(videoPath(v.ID()), pid)
	}
	vv := v.View()
	if vv.State == view.StatePopulated {
		data.Title = vv.Video.Title
	}
	data.Content = videoPage{VideoView: vv, PageID: pid, Authorized: data.Authorized}
	h.render.render(w, r, http.StatusOK, "video", data)
}

// HandleLike toggles the visitor's like.
//
// HTTP: POST /video/{id}/like?p=<instance>
func (h *VideoHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	sess, authz, ok := h.visitor(w, r)
	if !ok {
		return
	}
	v, pid := h.instance(r, sess)
	back := pageURL(videoPath(v.ID()), pid)

	if err := v.ToggleLike(r.Context(), authz); err != nil {
		actionFailed(w, r, sess, err, back, "Could not update your like.")
		return
	}
	redirect(w, r, back)
}

// HandleComment posts a comment.
//
// HTTP: POST /video/{id}/comments?p=<instance>
// Form: text
//
// A failed post keeps the text in the comment box; the page shows why.
func (h *VideoHandler) HandleComment(w http.ResponseWriter, r *http.Request) {
	sess, authz, ok := h.visitor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	v, pid := h.instance(r, sess)
	back := pageURL(videoPath(v.ID()), pid)

	err := v.Comment(r.Context(), authz, view.CommentForm{Text: r.PostForm.Get("text")})
	switch {
	case err == nil, kept(err):
		// The page shows the upstream failure next to the comment box.
		redirect(w, r, back)
	default:
		actionFailed(w, r, sess, err, back, "Could not post your comment.")
	}
}

// kept reports whether a comment error is already held by the page as the
// comment box's error text.
func kept(err error) bool {
	return !errors.Is(err, apperror.ErrSessionExpired) &&
		!errors.Is(err, apperror.ErrAuthRequired) &&
		!errors.Is(err, apperror.ErrValidation)
}
