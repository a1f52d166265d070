package view

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/auth"
	"github.com/sakif/vidshare/internal/model"
)

// VideoAPI is the part of the API client the video page uses.
type VideoAPI interface {
	GetVideo(ctx context.Context, id model.ID) (model.Video, error)
	ListComments(ctx context.Context, id model.ID) ([]model.Comment, error)
	ToggleLike(ctx context.Context, id model.ID) (model.LikeState, error)
	PostComment(ctx context.Context, id model.ID, text string) (model.Comment, error)
}

// CommentForm is the comment box.
type CommentForm struct {
	Text string `form:"text" validate:"required"`
}

// VideoDetail is one video with its likes and comments.
//
// The video and its comments are fetched independently; either may finish
// or fail first and neither blocks the other from rendering.
type VideoDetail struct {
	api VideoAPI
	id  model.ID

	video    Fetch[model.Video]
	comments Fetch[[]model.Comment]

	mu    sync.Mutex
	draft string
	err   string
}

// VideoView is a render-ready snapshot of a VideoDetail.
type VideoView struct {
	ID            model.ID
	State         State
	Video         model.Video
	CommentsState State
	Comments      []model.Comment
	Draft         string
	Error         string
}

// NewVideoDetail creates the page for id.
func NewVideoDetail(api VideoAPI, id model.ID) *VideoDetail {
	return &VideoDetail{api: api, id: id}
}

// ID is the video shown.
func (v *VideoDetail) ID() model.ID {
	return v.id
}

// Mount starts both fetches.
func (v *VideoDetail) Mount(ctx context.Context) {
	v.video.Start(ctx, "video", func(ctx context.Context) (model.Video, error) {
		return v.api.GetVideo(ctx, v.id)
	})
	v.comments.Start(ctx, "comments", func(ctx context.Context) ([]model.Comment, error) {
		return v.api.ListComments(ctx, v.id)
	})
}

// Wait waits up to d for both fetches.
func (v *VideoDetail) Wait(ctx context.Context, d time.Duration) bool {
	return waitAll(ctx, d, v.video.Wait, v.comments.Wait)
}

// ToggleLike flips the like and merges the returned counts into the loaded
// video. Nothing else about the video changes and it is not re-fetched.
func (v *VideoDetail) ToggleLike(ctx context.Context, authz auth.Authorization) error {
	if _, ok := authz.(auth.Authorized); !ok {
		return apperror.AuthRequired("like a video")
	}
	state, err := v.api.ToggleLike(ctx, v.id)
	if err != nil {
		return err
	}
	v.video.Update(func(cur model.Video) model.Video {
		return cur.WithLike(state)
	})
	return nil
}

// Comment posts text and puts the stored comment at the top of the list. On
// success the comment box is cleared; on failure it keeps the text.
func (v *VideoDetail) Comment(ctx context.Context, authz auth.Authorization, form CommentForm) error {
	if _, ok := authz.(auth.Authorized); !ok {
		return apperror.AuthRequired("comment")
	}
	form.Text = strings.TrimSpace(form.Text)
	if verr := Validate(form); verr != nil {
		return verr
	}

	v.mu.Lock()
	v.draft = form.Text
	v.err = ""
	v.mu.Unlock()

	c, err := v.api.PostComment(ctx, v.id, form.Text)
	if err != nil {
		v.mu.Lock()
		v.err = apperror.UserMessage(err, "Could not post your comment.")
		v.mu.Unlock()
		return err
	}

	v.comments.Override(func(cur []model.Comment) []model.Comment {
		next := make([]model.Comment, 0, len(cur)+1)
		next = append(next, c)
		return append(next, cur...)
	})
	v.mu.Lock()
	v.draft = ""
	v.mu.Unlock()
	return nil
}

// View snapshots the page.
func (v *VideoDetail) View() VideoView {
	video := v.video.Snapshot()
	comments := v.comments.Snapshot()

	out := VideoView{
		ID:            v.id,
		State:         Render(video.Loading(), videoCount(video), video.Err),
		Video:         video.Data,
		CommentsState: Render(comments.Loading(), len(comments.Data), comments.Err),
		Comments:      comments.Data,
	}

	v.mu.Lock()
	out.Draft, out.Error = v.draft, v.err
	v.mu.Unlock()
	return out
}

func videoCount(s Snapshot[model.Video]) int {
	if s.Phase == Succeeded {
		return 1
	}
	return 0
}
