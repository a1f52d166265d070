package handler

import (
	"net/http"

	"github.com/sakif/vidshare/internal/view"
)

// FeedHandler serves the video grid at / and /feed.
type FeedHandler struct {
	*Pages
	feeds *view.Registry[*view.Feed]
}

// NewFeedHandler creates a FeedHandler holding its page instances in feeds.
func NewFeedHandler(p *Pages, feeds *view.Registry[*view.Feed]) *FeedHandler {
	return &FeedHandler{Pages: p, feeds: feeds}
}

// feedPage is the feed template's data.
type feedPage struct {
	view.FeedView
	PageID string
}

// HandleFeed renders the feed.
//
// HTTP: GET /feed?p=<instance>&search=<term>
//
// Without a live instance a new feed is mounted with the search term. With
// one, a submitted search (the parameter present, even empty) re-fetches;
// a bare ?p= re-renders, which is what the loading page's refresh does.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	sess, authz, ok := h.visitor(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	search, searched := query.Get("search"), query.Has("search")

	id := query.Get(pageParam)
	feed, found := h.feeds.Get(id, sess.ID())
	switch {
	case !found:
		feed = view.NewFeed(h.api.WithSession(sess), authz)
		feed.Mount(r.Context(), search)
		id = h.feeds.Put(sess.ID(), feed)
	case searched:
		feed.Search(r.Context(), search)
	}
	feed.SetAuthorization(authz)

	data := newPage("Videos", authz)
	if !feed.Wait(r.Context(), h.opts.RenderWait) {
		data.RefreshURL = pageURL(r.URL.Path, id)
	}
	data.Content = feedPage{FeedView: feed.View(), PageID: id}
	h.render.render(w, r, http.StatusOK, "feed", data)
}
