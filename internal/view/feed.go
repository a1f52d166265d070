package view

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sakif/vidshare/internal/auth"
	"github.com/sakif/vidshare/internal/model"
)

// VideoLister is the part of the API client the feed uses.
type VideoLister interface {
	ListVideos(ctx context.Context, search string) ([]model.Video, error)
}

// Feed is the video grid with its search box.
type Feed struct {
	api     VideoLister
	landing Landing

	mu     sync.Mutex
	search string
	videos Fetch[[]model.Video]
}

// FeedView is a render-ready snapshot of a Feed.
type FeedView struct {
	State   State
	Videos  []model.Video
	Search  string
	Landing Landing
}

// NewFeed creates a feed for a visitor with the given authorization.
func NewFeed(api VideoLister, authz auth.Authorization) *Feed {
	return &Feed{
		api:     api,
		landing: NewLanding(authz),
	}
}

// Mount starts the initial fetch for search.
func (f *Feed) Mount(ctx context.Context, search string) {
	f.Search(ctx, search)
}

// Search re-fetches with a new term. A blank term fetches the unfiltered
// list.
func (f *Feed) Search(ctx context.Context, search string) {
	search = strings.TrimSpace(search)

	f.mu.Lock()
	f.search = search
	f.mu.Unlock()

	f.videos.Start(ctx, "videos", func(ctx context.Context) ([]model.Video, error) {
		return f.api.ListVideos(ctx, search)
	})
}

// Query returns the current search term.
func (f *Feed) Query() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.search
}

// SetAuthorization refreshes the landing banner after a login or logout.
func (f *Feed) SetAuthorization(a auth.Authorization) {
	f.mu.Lock()
	f.landing = NewLanding(a)
	f.mu.Unlock()
}

// Wait waits up to d for the fetch to settle.
func (f *Feed) Wait(ctx context.Context, d time.Duration) bool {
	return f.videos.Wait(ctx, d)
}

// View snapshots the feed.
func (f *Feed) View() FeedView {
	snap := f.videos.Snapshot()

	f.mu.Lock()
	defer f.mu.Unlock()
	return FeedView{
		State:   Render(snap.Loading(), len(snap.Data), snap.Err),
		Videos:  snap.Data,
		Search:  f.search,
		Landing: f.landing,
	}
}
