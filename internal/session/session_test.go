package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/vidshare/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// brokenStore fails every call.
type brokenStore struct{ MemoryStore }

func (*brokenStore) Get(context.Context, string, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func (*brokenStore) Credentials(context.Context, string) (model.Credentials, error) {
	return model.Credentials{}, errors.New("disk on fire")
}

// interleavingStore calls between after every single-key read, standing in
// for a login from another tab landing mid-read.
type interleavingStore struct {
	*MemoryStore
	between func()
}

func (s *interleavingStore) Get(ctx context.Context, sessionKey, name string) (string, bool, error) {
	v, ok, err := s.MemoryStore.Get(ctx, sessionKey, name)
	s.between()
	return v, ok, err
}

func TestSession_CredentialsRoundTrip(t *testing.T) {
	s := New(xid.New().String(), NewMemoryStore())
	ctx := context.Background()

	creds, err := s.Credentials(ctx)
	require.NoError(t, err)
	assert.True(t, creds.Anonymous())

	want := model.Credentials{AccessToken: "a1", RefreshToken: "r1", Email: "u@x.com"}
	require.NoError(t, s.SetCredentials(ctx, want))

	got, err := s.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.Clear(ctx))
	got, err = s.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Credentials{}, got)
}

func TestSession_CredentialsNeverMixesBundles(t *testing.T) {
	ctx := context.Background()
	old := model.Credentials{AccessToken: "old", RefreshToken: "ro", Email: "old@x.com"}
	next := model.Credentials{AccessToken: "new", RefreshToken: "rn", Email: "new@x.com"}

	mem := NewMemoryStore()
	key := New("id", mem).key
	require.NoError(t, mem.SetCredentials(ctx, key, old))
	s := New("id", &interleavingStore{MemoryStore: mem, between: func() {
		require.NoError(t, mem.SetCredentials(ctx, key, next))
	}})

	got, err := s.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, old, got)
}

func TestSession_CredentialsConsistentUnderConcurrentLogins(t *testing.T) {
	ctx := context.Background()
	s := New("id", NewMemoryStore())
	bundles := []model.Credentials{
		{AccessToken: "a1", RefreshToken: "r1", Email: "one@x.com"},
		{AccessToken: "a2", RefreshToken: "r2", Email: "two@x.com"},
	}
	require.NoError(t, s.SetCredentials(ctx, bundles[0]))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = s.SetCredentials(ctx, bundles[i%2])
		}
	}()

	for i := 0; i < 1000; i++ {
		got, err := s.Credentials(ctx)
		require.NoError(t, err)
		assert.Contains(t, bundles, got)
	}
	close(stop)
	wg.Wait()
}

func TestSession_SetCredentialsRejectsPartialBundle(t *testing.T) {
	store := NewMemoryStore()
	s := New("id", store)

	err := s.SetCredentials(context.Background(), model.Credentials{AccessToken: "a1"})
	require.Error(t, err)

	_, ok, _ := store.Get(context.Background(), s.key, model.KeyAccessToken)
	assert.False(t, ok)
}

func TestSession_SetRefusesCredentialKeys(t *testing.T) {
	s := New("id", NewMemoryStore())
	for _, name := range model.CredentialKeys {
		assert.Error(t, s.Set(context.Background(), name, "x"), name)
	}
	assert.NoError(t, s.Set(context.Background(), "theme", "dark"))
}

func TestSession_KeyIsHashedID(t *testing.T) {
	a := New("same-id", NewMemoryStore())
	b := New("same-id", NewMemoryStore())
	c := New("other-id", NewMemoryStore())

	assert.Equal(t, a.key, b.key)
	assert.NotEqual(t, a.key, c.key)
	assert.NotContains(t, a.key, "same-id")
	assert.Len(t, a.key, 64)
}

func TestSession_StoreErrorsPropagate(t *testing.T) {
	s := New("id", &brokenStore{})
	_, err := s.Credentials(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestManager_IssuesCookieOnFirstVisit(t *testing.T) {
	m := NewManager(NewMemoryStore(), false, discardLogger())

	var seen *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, seen.ID(), cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestManager_ReusesExistingCookie(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, false, discardLogger())
	id := xid.New().String()
	require.NoError(t, m.Open(id).SetCredentials(context.Background(), model.Credentials{
		AccessToken: "a1", RefreshToken: "r1", Email: "u@x.com",
	}))

	var creds model.Credentials
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		require.True(t, ok)
		creds, _ = s.Credentials(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: id})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Empty(t, rr.Result().Cookies(), "no new cookie for a known session")
	assert.Equal(t, "a1", creds.AccessToken)
}

func TestManager_ReplacesMalformedCookie(t *testing.T) {
	m := NewManager(NewMemoryStore(), true, discardLogger())

	var seen *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "../../etc/passwd"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.NotNil(t, seen)
	assert.NotEqual(t, "../../etc/passwd", seen.ID())
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
}

func TestFromContext_Missing(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}
