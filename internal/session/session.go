// Package session is the client-side session store.
//
// The browser holds only an opaque session id in an HttpOnly cookie; the
// credential bundle (accessToken, refreshToken, email) lives server-side in a
// repository.SessionRepository under a key derived from that id.
//
// A *Session is the explicit session object handed to every view controller
// and to the API client. Nothing else touches the repository.
package session

import (
	"context"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/sakif/vidshare/internal/model"
	"github.com/sakif/vidshare/internal/repository"
)

// Session is one browser's view of the store.
type Session struct {
	id    string
	key   string
	store repository.SessionRepository
}

// New binds the session id to store. The storage key is blake2b-256 of the id,
// so a leaked table does not hand out live cookies.
func New(id string, store repository.SessionRepository) *Session {
	sum := blake2b.Sum256([]byte(id))
	return &Session{
		id:    id,
		key:   hex.EncodeToString(sum[:]),
		store: store,
	}
}

// ID is the cookie value.
func (s *Session) ID() string {
	return s.id
}

// Get reads one stored value.
func (s *Session) Get(ctx context.Context, name string) (string, bool, error) {
	v, ok, err := s.store.Get(ctx, s.key, name)
	if err != nil {
		return "", false, fmt.Errorf("session: get %s: %w", name, err)
	}
	return v, ok, nil
}

// Set writes one stored value. Credential keys must go through
// SetCredentials instead.
func (s *Session) Set(ctx context.Context, name, value string) error {
	for _, k := range model.CredentialKeys {
		if name == k {
			return fmt.Errorf("session: %s is part of the credentials bundle", name)
		}
	}
	if err := s.store.Set(ctx, s.key, name, value); err != nil {
		return fmt.Errorf("session: set %s: %w", name, err)
	}
	return nil
}

// Credentials reads the bundle in one store operation. A missing key reads
// as "".
func (s *Session) Credentials(ctx context.Context) (model.Credentials, error) {
	creds, err := s.store.Credentials(ctx, s.key)
	if err != nil {
		return model.Credentials{}, fmt.Errorf("session: reading credentials: %w", err)
	}
	return creds, nil
}

// SetCredentials stores the bundle as a unit.
func (s *Session) SetCredentials(ctx context.Context, creds model.Credentials) error {
	if creds.AccessToken == "" || creds.Email == "" {
		return fmt.Errorf("session: credentials need an access token and an email")
	}
	if err := s.store.SetCredentials(ctx, s.key, creds); err != nil {
		return fmt.Errorf("session: storing credentials: %w", err)
	}
	return nil
}

// Clear removes the bundle; the session becomes anonymous.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.DeleteCredentials(ctx, s.key); err != nil {
		return fmt.Errorf("session: clearing credentials: %w", err)
	}
	return nil
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession stores s on the context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the session placed by Manager.Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}
