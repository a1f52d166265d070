package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoDecodesWireFormat(t *testing.T) {
	payload := `{
		"id": 12,
		"title": "Cats",
		"description": "cats being cats",
		"thumbnail_url": "https://cdn.example.com/t.jpg",
		"video_url": "https://cdn.example.com/v.mp4",
		"uploaded_by": {"username": "bob", "profile_image": "https://cdn.example.com/bob.png"},
		"uploaded_at": "2024-03-05T10:11:12.123456Z",
		"views": 40,
		"likes": 4,
		"liked": false
	}`

	var v Video
	require.NoError(t, json.Unmarshal([]byte(payload), &v))

	assert.Equal(t, ID("12"), v.ID)
	assert.Equal(t, "bob", v.UploadedBy.Username)
	assert.Equal(t, "Mar 5, 2024", v.UploadedAt.Date())
	assert.Equal(t, int64(40), v.Views)
}

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ID
	}{
		{"number", `7`, "7"},
		{"string", `"a1b2"`, "a1b2"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &id))
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestWithLikeChangesOnlyLikeFields(t *testing.T) {
	before := Video{
		ID:          "3",
		Title:       "Original title",
		Description: "Original description",
		Views:       99,
		Likes:       4,
		Liked:       false,
	}

	after := before.WithLike(LikeState{Likes: 5, Liked: true})

	assert.Equal(t, int64(5), after.Likes)
	assert.True(t, after.Liked)

	expected := before
	expected.Likes, expected.Liked = 5, true
	assert.Equal(t, expected, after)
	assert.Equal(t, int64(4), before.Likes, "receiver must not be mutated")
}

func TestTimestampDateFallsBackToRaw(t *testing.T) {
	assert.Equal(t, "yesterday", Timestamp("yesterday").Date())
	assert.Equal(t, "Jan 2, 2024", Timestamp("2024-01-02").Date())
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", User{FirstName: "Ada"}.FullName())
	assert.Equal(t, "", User{}.FullName())
}
