// Package handler contains the HTTP handlers for the vidshare pages.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface.
// Chi accepts plain functions with the right signature, so every page action
// is a method on a small handler struct:
//
//	func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request)
//
// HANDLER RESPONSIBILITIES:
//  1. Resolve the visitor's session and page instance
//  2. Call the view controller (package view), which owns all page state
//  3. Render a template, or redirect after a POST (post/redirect/get)
//
// Handlers contain no page logic of their own; they translate HTTP into view
// calls and view errors into redirects and notices.
package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/vidshare/internal/api"
	"github.com/sakif/vidshare/internal/auth"
	"github.com/sakif/vidshare/internal/logging"
	"github.com/sakif/vidshare/internal/session"
)

// pageParam names the page instance in follow-up requests.
const pageParam = "p"

// Options tunes the page handlers.
type Options struct {
	// RenderWait bounds how long a GET waits for background fetches before
	// rendering the loading state.
	RenderWait time.Duration
	// MaxUploadBytes caps a multipart request body.
	MaxUploadBytes int64
	// UploadDir receives staged upload files. Empty means os.TempDir.
	UploadDir string
}

// Pages holds the dependencies every page handler shares.
type Pages struct {
	api    *api.Client
	render *Renderer
	opts   Options
	logger *slog.Logger
}

// NewPages bundles the shared page dependencies.
func NewPages(client *api.Client, render *Renderer, opts Options, logger *slog.Logger) *Pages {
	return &Pages{
		api:    client,
		render: render,
		opts:   opts,
		logger: logger,
	}
}

// visitor resolves the session and its authorization. On failure it has
// already written a 500 and returns ok=false.
func (p *Pages) visitor(w http.ResponseWriter, r *http.Request) (*session.Session, auth.Authorization, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		logging.FromContext(r.Context()).Error("no session on request")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	authz, err := auth.Check(r.Context(), sess)
	if err != nil {
		logging.FromContext(r.Context()).Error("reading session", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	return sess, authz, true
}

// pageURL is path with the page instance id attached.
func pageURL(path, id string) string {
	if id == "" {
		return path
	}
	return path + "?" + url.Values{pageParam: {id}}.Encode()
}

// redirect sends the browser to target with 303 so a POST is followed by a GET.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
