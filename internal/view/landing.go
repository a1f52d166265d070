package view

import "github.com/sakif/vidshare/internal/auth"

// Landing is the welcome banner with the sign-up and log-in affordances. It
// is shown above the feed to anonymous visitors only.
type Landing struct {
	Visible  bool
	Headline string
	Tagline  string
}

// NewLanding decides the banner from the visitor's authorization.
func NewLanding(a auth.Authorization) Landing {
	return Landing{
		Visible:  !auth.IsAuthorized(a),
		Headline: "Share what you film",
		Tagline:  "Upload videos, follow what others post and join the conversation.",
	}
}
