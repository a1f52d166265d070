package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/model"
)

// ListVideos fetches the feed. A blank search fetches the unfiltered list and
// sends no search parameter at all.
func (c *Client) ListVideos(ctx context.Context, search string) ([]model.Video, error) {
	var query url.Values
	if q := strings.TrimSpace(search); q != "" {
		query = url.Values{"search": {q}}
	}
	res, err := c.Request(ctx, http.MethodGet, "videos/", Options{Query: query})
	if err != nil {
		return nil, err
	}
	var body struct {
		Videos []model.Video `json:"videos"`
	}
	if err := res.Decode(&body); err != nil {
		return nil, err
	}
	return body.Videos, nil
}

// TokenPair is the /login/ response.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login exchanges credentials for a token pair. It does not touch the
// session; storing the pair is the caller's job.
func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	res, err := c.Request(ctx, http.MethodPost, "login/", Options{
		JSON: map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return TokenPair{}, err
	}
	var pair TokenPair
	if err := res.Decode(&pair); err != nil {
		return TokenPair{}, err
	}
	if pair.Access == "" {
		return TokenPair{}, apperror.Upstream(res.Status, "Login response did not include a token.")
	}
	return pair, nil
}

// RequestOTP asks the API to email a one-time passcode and returns the
// server's message.
func (c *Client) RequestOTP(ctx context.Context, email string) (string, error) {
	res, err := c.Request(ctx, http.MethodPost, "email-request/", Options{
		JSON: map[string]string{"email": email},
	})
	if err != nil {
		return "", err
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := res.Decode(&body); err != nil {
		return "", err
	}
	return body.Message, nil
}

// RegisterResult is the /register/ response. Some deployments also return a
// token pair, in which case the user is logged in straight away.
type RegisterResult struct {
	Message string `json:"message"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Register submits the signup form as multipart.
func (c *Client) Register(ctx context.Context, reg model.Registration) (RegisterResult, error) {
	form := NewMultipart().
		Field("email", reg.Email).
		Field("otp", reg.OTP).
		Field("username", reg.Username).
		Field("password", reg.Password).
		File("profile_image", reg.ProfileImage)

	res, err := c.Request(ctx, http.MethodPost, "register/", Options{Form: form})
	if err != nil {
		return RegisterResult{}, err
	}
	var out RegisterResult
	if err := res.Decode(&out); err != nil {
		return RegisterResult{}, err
	}
	return out, nil
}

// UserProfile fetches a user and their videos.
func (c *Client) UserProfile(ctx context.Context, email string) (model.Profile, error) {
	res, err := c.Request(ctx, http.MethodGet, "user-profile/"+url.PathEscape(email)+"/", Options{
		Endpoint: "/user-profile/:email/",
		Auth:     true,
	})
	if err != nil {
		return model.Profile{}, notFound(err, "user", email)
	}
	var p model.Profile
	if err := res.Decode(&p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// UploadVideo posts the draft's fields and files for email and returns the
// created video.
func (c *Client) UploadVideo(ctx context.Context, email string, d model.UploadDraft) (model.Video, error) {
	form := NewMultipart().
		Field("title", d.Title).
		Field("description", d.Description).
		File("video_file", d.VideoFile).
		File("thumbnail", d.Thumbnail)

	res, err := c.Request(ctx, http.MethodPost, "upload-video/"+url.PathEscape(email)+"/", Options{
		Endpoint: "/upload-video/:email/",
		Form:     form,
		Auth:     true,
	})
	if err != nil {
		return model.Video{}, err
	}
	var v model.Video
	if err := res.Decode(&v); err != nil {
		return model.Video{}, err
	}
	return v, nil
}

// GetVideo fetches one video. The token is attached when there is one so the
// server can fill in Liked.
func (c *Client) GetVideo(ctx context.Context, id model.ID) (model.Video, error) {
	res, err := c.Request(ctx, http.MethodGet, videoPath(id, ""), Options{
		Endpoint: "/videos/:id/",
		Auth:     true,
	})
	if err != nil {
		return model.Video{}, notFound(err, "video", id.String())
	}
	var v model.Video
	if err := res.Decode(&v); err != nil {
		return model.Video{}, err
	}
	return v, nil
}

// ListComments fetches a video's comments, newest first.
func (c *Client) ListComments(ctx context.Context, id model.ID) ([]model.Comment, error) {
	res, err := c.Request(ctx, http.MethodGet, videoPath(id, "comments/"), Options{
		Endpoint: "/videos/:id/comments/",
	})
	if err != nil {
		return nil, err
	}
	var body struct {
		Comments []model.Comment `json:"comments"`
	}
	if err := res.Decode(&body); err != nil {
		return nil, err
	}
	return body.Comments, nil
}

// ToggleLike flips the caller's like and returns the new state.
func (c *Client) ToggleLike(ctx context.Context, id model.ID) (model.LikeState, error) {
	res, err := c.Request(ctx, http.MethodPost, videoPath(id, "like-toggle/"), Options{
		Endpoint: "/videos/:id/like-toggle/",
		Auth:     true,
	})
	if err != nil {
		return model.LikeState{}, err
	}
	var s model.LikeState
	if err := res.Decode(&s); err != nil {
		return model.LikeState{}, err
	}
	return s, nil
}

// PostComment adds a comment and returns it as stored by the server.
func (c *Client) PostComment(ctx context.Context, id model.ID, text string) (model.Comment, error) {
	res, err := c.Request(ctx, http.MethodPost, videoPath(id, "comments/"), Options{
		Endpoint: "/videos/:id/comments/",
		JSON:     map[string]string{"text": text},
		Auth:     true,
	})
	if err != nil {
		return model.Comment{}, err
	}
	var body struct {
		Comment model.Comment `json:"comment"`
	}
	if err := res.Decode(&body); err != nil {
		return model.Comment{}, err
	}
	return body.Comment, nil
}

func videoPath(id model.ID, suffix string) string {
	return "videos/" + url.PathEscape(id.String()) + "/" + suffix
}

// notFound names the missing resource in a generic 404.
func notFound(err error, resource, id string) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NotFound(resource, id)
	}
	return err
}
