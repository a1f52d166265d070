package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/vidshare/internal/api"
	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/model"
	"github.com/sakif/vidshare/internal/session"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	return session.New("sess-"+t.Name(), session.NewMemoryStore())
}

func TestLogin_StoresBundle(t *testing.T) {
	sess := newSession(t)
	fake := &fakeAPI{login: func(email, password string) (api.TokenPair, error) {
		assert.Equal(t, "u@x.com", email)
		return api.TokenPair{Access: "a1", Refresh: "r1"}, nil
	}}

	err := NewAuthenticator().Login(context.Background(), sess, fake, LoginForm{Email: " u@x.com ", Password: "pw"})
	require.NoError(t, err)

	creds, err := sess.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Credentials{AccessToken: "a1", RefreshToken: "r1", Email: "u@x.com"}, creds)
}

func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	sess := newSession(t)
	prior := model.Credentials{AccessToken: "old", RefreshToken: "oldr", Email: "prev@x.com"}
	require.NoError(t, sess.SetCredentials(context.Background(), prior))

	fake := &fakeAPI{login: func(string, string) (api.TokenPair, error) {
		return api.TokenPair{}, &apperror.ValidationError{Message: "No active account found"}
	}}

	err := NewAuthenticator().Login(context.Background(), sess, fake, LoginForm{Email: "u@x.com", Password: "bad"})
	require.Error(t, err)
	assert.Equal(t, "No active account found", LoginError(err))

	creds, _ := sess.Credentials(context.Background())
	assert.Equal(t, prior, creds)
}

func TestLogin_RequiredFields(t *testing.T) {
	fake := &fakeAPI{}
	err := NewAuthenticator().Login(context.Background(), newSession(t), fake, LoginForm{Email: "  "})

	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email: is required; password: is required", LoginError(err))
	assert.Zero(t, fake.calls.Load(), "nothing is sent")
}

func TestLogin_NetworkFailureUsesGenericText(t *testing.T) {
	fake := &fakeAPI{login: func(string, string) (api.TokenPair, error) {
		return api.TokenPair{}, apperror.Network(errors.New("dial tcp: refused"))
	}}
	err := NewAuthenticator().Login(context.Background(), newSession(t), fake, LoginForm{Email: "u@x.com", Password: "pw"})
	assert.Equal(t, "Login failed. Try again.", LoginError(err))
}

func TestLogin_DuplicateSubmitsShareOneRequest(t *testing.T) {
	sess := newSession(t)
	release := make(chan struct{})
	fake := &fakeAPI{login: func(string, string) (api.TokenPair, error) {
		<-release
		return api.TokenPair{Access: "a1", Refresh: "r1"}, nil
	}}
	a := NewAuthenticator()
	form := LoginForm{Email: "u@x.com", Password: "pw"}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = a.Login(context.Background(), sess, fake, form)
		}(i)
	}

	assert.Eventually(t, func() bool { return fake.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestLogin_DifferentCredentialsAreNotCollapsed(t *testing.T) {
	sess := newSession(t)
	release := make(chan struct{})
	fake := &fakeAPI{login: func(email, password string) (api.TokenPair, error) {
		if email == "first@x.com" {
			<-release
			return api.TokenPair{}, &apperror.ValidationError{Message: "No active account found"}
		}
		return api.TokenPair{Access: "a2", Refresh: "r2"}, nil
	}}
	a := NewAuthenticator()

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- a.Login(context.Background(), sess, fake, LoginForm{Email: "first@x.com", Password: "bad"})
	}()
	require.Eventually(t, func() bool { return fake.calls.Load() == 1 }, time.Second, time.Millisecond)

	err := a.Login(context.Background(), sess, fake, LoginForm{Email: "second@x.com", Password: "pw"})
	require.NoError(t, err, "the second submission gets its own outcome")
	close(release)
	assert.Error(t, <-firstErr)

	assert.Equal(t, int32(2), fake.calls.Load())
	creds, err := sess.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Credentials{AccessToken: "a2", RefreshToken: "r2", Email: "second@x.com"}, creds)
}

func TestLogin_SameEmailDifferentPasswordIsNotCollapsed(t *testing.T) {
	form := LoginForm{Email: "u@x.com", Password: "one"}
	other := form
	other.Password = "two"
	assert.Equal(t, submissionKey("s1", form), submissionKey("s1", form))
	assert.NotEqual(t, submissionKey("s1", form), submissionKey("s1", other))
	assert.NotEqual(t, submissionKey("s1", form), submissionKey("s2", form))
	assert.NotContains(t, submissionKey("s1", form), "one")
}
