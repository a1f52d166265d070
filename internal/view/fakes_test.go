package view

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sakif/vidshare/internal/api"
	"github.com/sakif/vidshare/internal/model"
)

// fakeAPI implements every controller's API interface. Each call is answered
// by the matching func field; unset fields return zero values.
type fakeAPI struct {
	mu sync.Mutex

	listVideos   func(search string) ([]model.Video, error)
	login        func(email, password string) (api.TokenPair, error)
	requestOTP   func(email string) (string, error)
	register     func(reg model.Registration) (api.RegisterResult, error)
	userProfile  func(email string) (model.Profile, error)
	uploadVideo  func(email string, d model.UploadDraft) (model.Video, error)
	getVideo     func(id model.ID) (model.Video, error)
	listComments func(id model.ID) ([]model.Comment, error)
	toggleLike   func(id model.ID) (model.LikeState, error)
	postComment  func(id model.ID, text string) (model.Comment, error)

	calls    atomic.Int32
	searches []string
}

func (f *fakeAPI) ListVideos(_ context.Context, search string) ([]model.Video, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.searches = append(f.searches, search)
	f.mu.Unlock()
	if f.listVideos == nil {
		return nil, nil
	}
	return f.listVideos(search)
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (api.TokenPair, error) {
	f.calls.Add(1)
	return f.login(email, password)
}

func (f *fakeAPI) RequestOTP(_ context.Context, email string) (string, error) {
	f.calls.Add(1)
	return f.requestOTP(email)
}

func (f *fakeAPI) Register(_ context.Context, reg model.Registration) (api.RegisterResult, error) {
	f.calls.Add(1)
	return f.register(reg)
}

func (f *fakeAPI) UserProfile(_ context.Context, email string) (model.Profile, error) {
	f.calls.Add(1)
	return f.userProfile(email)
}

func (f *fakeAPI) UploadVideo(_ context.Context, email string, d model.UploadDraft) (model.Video, error) {
	f.calls.Add(1)
	return f.uploadVideo(email, d)
}

func (f *fakeAPI) GetVideo(_ context.Context, id model.ID) (model.Video, error) {
	f.calls.Add(1)
	return f.getVideo(id)
}

func (f *fakeAPI) ListComments(_ context.Context, id model.ID) ([]model.Comment, error) {
	f.calls.Add(1)
	return f.listComments(id)
}

func (f *fakeAPI) ToggleLike(_ context.Context, id model.ID) (model.LikeState, error) {
	f.calls.Add(1)
	return f.toggleLike(id)
}

func (f *fakeAPI) PostComment(_ context.Context, id model.ID, text string) (model.Comment, error) {
	f.calls.Add(1)
	return f.postComment(id, text)
}
