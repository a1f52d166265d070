package repository

import (
	"context"

	"github.com/sakif/vidshare/internal/model"
)

// SessionRepository is the persisted key/value storage behind a browser
// session. sessionKey identifies the session; name is one of the storage keys
// (model.KeyAccessToken and friends).
//
// Get reports ok=false for a key that was never set. Credentials reads the
// whole bundle in one operation, SetCredentials writes it atomically and
// DeleteCredentials removes it atomically, so a reader never observes a
// partial or mixed bundle.
type SessionRepository interface {
	Get(ctx context.Context, sessionKey, name string) (value string, ok bool, err error)
	Set(ctx context.Context, sessionKey, name, value string) error
	Credentials(ctx context.Context, sessionKey string) (model.Credentials, error)
	SetCredentials(ctx context.Context, sessionKey string, creds model.Credentials) error
	DeleteCredentials(ctx context.Context, sessionKey string) error
	Close() error
}
