// Package auth decides whether the current browser session may perform
// authenticated actions.
//
// TOKEN POLICY:
// The API issues the tokens and is the only party that can verify them. This
// client never checks a signature; it only peeks at the "exp" claim so an
// obviously stale token is treated as anonymous before a request is wasted.
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: claims → {"user_id":7,"exp":1234567890}
//
// Tokens that are not JWTs are opaque to us and never expire locally. The
// server still answers 401 for them, which the API client reports as
// apperror.ErrSessionExpired.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// errOpaqueToken means the token could not be read as a JWT.
var errOpaqueToken = errors.New("auth: token is not a JWT")

// TokenExpiry returns the "exp" claim of an access token without verifying
// its signature. ok is false when the token carries no expiry.
func TokenExpiry(token string) (exp time.Time, ok bool, err error) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", errOpaqueToken, err)
	}

	date, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("auth: reading exp claim: %w", err)
	}
	if date == nil {
		return time.Time{}, false, nil
	}
	return date.Time, true, nil
}

// TokenExpired reports whether token's "exp" lies before now. Opaque tokens and
// tokens without an expiry are never expired.
func TokenExpired(token string, now time.Time) bool {
	exp, ok, err := TokenExpiry(token)
	if err != nil || !ok {
		return false
	}
	return !now.Before(exp)
}
