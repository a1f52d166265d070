package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is a record identifier. The API sends numeric primary keys but the
// client treats them as opaque strings.
type ID string

// UnmarshalJSON accepts both 42 and "42".
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("model: decoding id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("model: decoding id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Timestamp is a server-formatted time. It is kept verbatim and only parsed
// for display.
type Timestamp string

// Date renders the calendar date, or the raw value when it cannot be parsed.
func (ts Timestamp) Date() string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if t, err := time.Parse(layout, string(ts)); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return string(ts)
}

// Video is one entry of the feed, a profile grid or the detail page.
// Likes and Liked change after a like toggle; every other field is fixed once
// fetched.
type Video struct {
	ID           ID          `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	ThumbnailURL string      `json:"thumbnail_url"`
	VideoURL     string      `json:"video_url"`
	UploadedBy   UserSummary `json:"uploaded_by"`
	UploadedAt   Timestamp   `json:"uploaded_at"`
	Views        int64       `json:"views"`
	Likes        int64       `json:"likes"`
	Liked        bool        `json:"liked"`
}

// LikeState is the like-toggle response.
type LikeState struct {
	Likes int64 `json:"likes"`
	Liked bool  `json:"liked"`
}

// WithLike returns a copy of v with only Likes and Liked replaced.
func (v Video) WithLike(s LikeState) Video {
	v.Likes = s.Likes
	v.Liked = s.Liked
	return v
}

// Comment is one entry of a video's comment list. Lists are ordered newest
// first.
type Comment struct {
	User      string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt Timestamp `json:"created_at"`
}
