package model

// Storage keys of the persisted credential bundle.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyEmail        = "email"
)

// CredentialKeys lists the bundle's keys in storage order.
var CredentialKeys = []string{KeyAccessToken, KeyRefreshToken, KeyEmail}

// Credentials is the client-held proof of identity. An empty AccessToken
// means the user is anonymous. The three values are always written together.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Email        string
}

// Anonymous reports whether no access token is held.
func (c Credentials) Anonymous() bool {
	return c.AccessToken == ""
}

// CredentialsFrom assembles a bundle from values keyed by storage key. A
// missing key reads as "".
func CredentialsFrom(values map[string]string) Credentials {
	return Credentials{
		AccessToken:  values[KeyAccessToken],
		RefreshToken: values[KeyRefreshToken],
		Email:        values[KeyEmail],
	}
}

// Values returns the bundle keyed by storage key.
func (c Credentials) Values() map[string]string {
	return map[string]string{
		KeyAccessToken:  c.AccessToken,
		KeyRefreshToken: c.RefreshToken,
		KeyEmail:        c.Email,
	}
}
