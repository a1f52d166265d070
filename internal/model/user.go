// Package model defines the records exchanged with the video API. They are
// transient: every value here is fetched per view and never cached across
// views. Only model.Credentials outlives a page.
package model

// User is the owner of a profile page.
//
// The json tags follow the API's snake_case wire format.
type User struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ProfilePhotoURL string `json:"profile_photo"`
}

// FullName joins first and last name, skipping whichever is empty.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// UserSummary is the uploader embedded in every video record.
type UserSummary struct {
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image"`
}

// Profile is the GET /user-profile/:email/ payload.
type Profile struct {
	User   *User   `json:"user"`
	Videos []Video `json:"videos"`
}

// Registration is the signup form sent as multipart to /register/.
// ProfileImage is optional.
type Registration struct {
	Email        string
	OTP          string
	Username     string
	Password     string
	ProfileImage *FilePart
}
