package view

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/logging"
	"github.com/sakif/vidshare/internal/model"
)

// ProfileAPI is the part of the API client the profile page uses.
type ProfileAPI interface {
	UserProfile(ctx context.Context, email string) (model.Profile, error)
	UploadVideo(ctx context.Context, email string, d model.UploadDraft) (model.Video, error)
}

const (
	uploadSucceeded = "Upload successful"
	uploadFailed    = "Upload failed"
)

// Profile is the signed-in user's page: their header, their videos and the
// upload modal.
//
// While an upload runs the page is inert: every other action returns
// apperror.ErrInFlight and the view carries Uploading so the template draws
// the blocking overlay. Until the profile has loaded, opening the modal and
// uploading return apperror.ErrNotReady.
type Profile struct {
	api   ProfileAPI
	email string

	profile Fetch[model.Profile]

	mu        sync.Mutex
	modalOpen bool
	draft     model.UploadDraft
	uploading bool
	uploadErr error
	notice    *Notice
	expired   bool
	disposed  bool
	uploaded  chan struct{}
}

// Notice is a one-shot message produced by an action.
type Notice struct {
	Text  string
	Error bool
}

// ProfileView is a render-ready snapshot of a Profile.
type ProfileView struct {
	State       State
	User        *model.User
	Videos      []model.Video
	VideosState State
	ModalOpen   bool
	Draft       model.UploadDraft
	DraftError  string
	Uploading   bool
	Notice      *Notice
}

// NewProfile creates the page for email.
func NewProfile(api ProfileAPI, email string) *Profile {
	return &Profile{api: api, email: email}
}

// Email is the profile owner.
func (p *Profile) Email() string {
	return p.email
}

// Mount starts the profile fetch.
func (p *Profile) Mount(ctx context.Context) {
	p.profile.Start(ctx, "user-profile", func(ctx context.Context) (model.Profile, error) {
		prof, err := p.api.UserProfile(ctx, p.email)
		if errors.Is(err, apperror.ErrSessionExpired) {
			p.markExpired()
		}
		return prof, err
	})
}

// Wait waits up to d for the profile fetch and any running upload.
func (p *Profile) Wait(ctx context.Context, d time.Duration) bool {
	return waitAll(ctx, d, p.profile.Wait, p.waitUpload)
}

// OpenModal shows the upload form.
func (p *Profile) OpenModal() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.uploading {
		return apperror.InFlight("An upload")
	}
	if !p.loaded() {
		return apperror.NotReady("Your profile")
	}
	p.modalOpen = true
	return nil
}

// CloseModal hides the upload form and discards the draft.
func (p *Profile) CloseModal() error {
	p.mu.Lock()
	if p.uploading {
		p.mu.Unlock()
		return apperror.InFlight("An upload")
	}
	p.modalOpen = false
	draft := p.draft
	p.draft = model.UploadDraft{}
	p.uploadErr = nil
	p.mu.Unlock()

	removeStaged(draft)
	return nil
}

// Upload validates the draft and starts sending it in the background.
// Files missing from d are taken from the previous attempt's draft. A
// validation failure keeps the modal open with the draft.
func (p *Profile) Upload(ctx context.Context, d model.UploadDraft) error {
	p.mu.Lock()
	if p.uploading {
		p.mu.Unlock()
		removeStaged(d)
		return apperror.InFlight("An upload")
	}
	if !p.loaded() {
		p.mu.Unlock()
		removeStaged(d)
		return apperror.NotReady("Your profile")
	}

	prev := p.draft
	d = d.Merge(prev)
	releaseReplaced(prev, d)
	p.draft = d
	p.modalOpen = true

	if verr := Validate(d); verr != nil {
		p.uploadErr = verr
		p.mu.Unlock()
		return verr
	}

	p.uploading = true
	p.uploadErr = nil
	done := make(chan struct{})
	p.uploaded = done
	p.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		video, err := p.api.UploadVideo(detached, p.email, d)
		p.finishUpload(detached, video, err)
	}()
	return nil
}

func (p *Profile) finishUpload(ctx context.Context, video model.Video, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploading = false

	if err != nil {
		logging.FromContext(ctx).Warn("upload failed",
			slog.String("email", p.email),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, apperror.ErrSessionExpired) {
			p.expired = true
		}
		p.uploadErr = err
		p.notice = &Notice{Text: uploadFailed, Error: true}
		if p.disposed {
			removeStaged(p.draft)
		}
		return
	}

	// Upload only starts on a loaded profile and the profile is never
	// re-fetched, so the new video always lands in the list.
	p.profile.Update(func(prof model.Profile) model.Profile {
		videos := make([]model.Video, 0, len(prof.Videos)+1)
		videos = append(videos, prof.Videos...)
		prof.Videos = append(videos, video)
		return prof
	})
	removeStaged(p.draft)
	p.draft = model.UploadDraft{}
	p.modalOpen = false
	p.notice = &Notice{Text: uploadSucceeded}
}

// loaded reports whether the profile fetch has succeeded.
func (p *Profile) loaded() bool {
	snap := p.profile.Snapshot()
	return snap.Phase == Succeeded && snap.Data.User != nil
}

func (p *Profile) waitUpload(ctx context.Context, d time.Duration) bool {
	p.mu.Lock()
	done, uploading := p.uploaded, p.uploading
	p.mu.Unlock()
	if !uploading || done == nil {
		return true
	}
	select {
	case <-done:
		return true
	default:
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
	case <-ctx.Done():
	}
	return false
}

// Uploading reports whether an upload is running.
func (p *Profile) Uploading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uploading
}

// SessionExpired reports whether the API answered 401 to this page's
// authenticated calls.
func (p *Profile) SessionExpired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expired
}

func (p *Profile) markExpired() {
	p.mu.Lock()
	p.expired = true
	p.mu.Unlock()
}

// View snapshots the page. A pending notice is handed out once.
func (p *Profile) View() ProfileView {
	snap := p.profile.Snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()

	v := ProfileView{
		ModalOpen: p.modalOpen,
		Draft:     p.draft,
		Uploading: p.uploading,
		Notice:    p.notice,
	}
	p.notice = nil

	var verr *apperror.ValidationError
	if errors.As(p.uploadErr, &verr) {
		v.DraftError = verr.Error()
	} else if p.uploadErr != nil {
		v.DraftError = uploadFailed
	}

	v.State = Render(snap.Loading(), userCount(snap.Data), snap.Err)
	if v.State == StatePopulated {
		v.User = snap.Data.User
		v.Videos = snap.Data.Videos
		v.VideosState = Render(false, len(v.Videos), nil)
	}
	return v
}

// Dispose removes the draft's staged files. It runs when the page instance
// is evicted.
func (p *Profile) Dispose() {
	p.mu.Lock()
	p.disposed = true
	if p.uploading {
		// The upload goroutine still reads the files and removes them when
		// it finishes.
		p.mu.Unlock()
		return
	}
	draft := p.draft
	p.draft = model.UploadDraft{}
	p.mu.Unlock()
	removeStaged(draft)
}

func userCount(p model.Profile) int {
	if p.User == nil {
		return 0
	}
	return 1
}

// releaseReplaced removes files of prev that next no longer references.
func releaseReplaced(prev, next model.UploadDraft) {
	for _, f := range prev.Files() {
		if f != next.VideoFile && f != next.Thumbnail {
			removeFile(f)
		}
	}
}

func removeStaged(d model.UploadDraft) {
	for _, f := range d.Files() {
		removeFile(f)
	}
}

func removeFile(f *model.FilePart) {
	if f != nil && f.Path != "" {
		_ = os.Remove(f.Path)
	}
}
