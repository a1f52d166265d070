package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
	"github.com/stretchr/testify/require"

	"github.com/sakif/vidshare/internal/api"
	"github.com/sakif/vidshare/internal/auth"
	"github.com/sakif/vidshare/internal/flash"
	"github.com/sakif/vidshare/internal/model"
	"github.com/sakif/vidshare/internal/session"
	"github.com/sakif/vidshare/internal/view"
	"github.com/sakif/vidshare/web"
)

// upstream is a fake REST API. Handlers are keyed by "METHOD /path" with the
// /api prefix stripped; every call is recorded.
type upstream struct {
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	calls    []*http.Request
	received map[string]url.Values
}

func newUpstream() *upstream {
	return &upstream{routes: map[string]http.HandlerFunc{}, received: map[string]url.Values{}}
}

func (u *upstream) on(route string, h http.HandlerFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[route] = h
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	u.mu.Lock()
	u.calls = append(u.calls, r.Clone(context.Background()))
	u.received[key] = r.URL.Query()
	h, ok := u.routes[key]
	u.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (u *upstream) count(route string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, c := range u.calls {
		if c.Method+" "+c.URL.Path == route {
			n++
		}
	}
	return n
}

func (u *upstream) query(route string) (url.Values, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	q, ok := u.received[route]
	return q, ok
}

func replyJSON(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

type harness struct {
	t      *testing.T
	up     *upstream
	store  *session.MemoryStore
	router chi.Router
	sid    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	up := newUpstream()
	srv := httptest.NewServer(http.StripPrefix("/api", up))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.DiscardHandler)
	client, err := api.New(api.Config{BaseURL: srv.URL + "/api/", Timeout: 5 * time.Second})
	require.NoError(t, err)
	renderer, err := NewRenderer(web.FS, logger)
	require.NoError(t, err)

	pages := NewPages(client, renderer, Options{
		RenderWait:     2 * time.Second,
		MaxUploadBytes: 1 << 20,
		UploadDir:      t.TempDir(),
	}, logger)

	store := session.NewMemoryStore()
	feeds := NewFeedHandler(pages, view.NewRegistry[*view.Feed](time.Minute, 100))
	videos := NewVideoHandler(pages, view.NewRegistry[*view.VideoDetail](time.Minute, 100))
	profiles := NewProfileHandler(pages, view.NewRegistry[*view.Profile](time.Minute, 100))
	authH := NewAuthHandler(pages, view.NewAuthenticator())

	r := chi.NewRouter()
	r.Use(session.NewManager(store, false, logger).Middleware)
	r.Get("/feed", feeds.HandleFeed)
	r.Get("/login", authH.HandleLoginPage)
	r.Post("/login", authH.HandleLogin)
	r.Get("/signup", authH.HandleSignupPage)
	r.Post("/signup", authH.HandleRegister)
	r.Post("/signup/otp", authH.HandleRequestOTP)
	r.Post("/logout", authH.HandleLogout)
	r.Get("/video/{id}", videos.HandleVideo)
	r.Post("/video/{id}/like", videos.HandleLike)
	r.Post("/video/{id}/comments", videos.HandleComment)
	r.Get("/healthz", HandleHealth)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Get("/user-profile", profiles.HandleProfile)
		r.Post("/user-profile/upload/open", profiles.HandleOpenUpload)
		r.Post("/user-profile/upload/close", profiles.HandleCloseUpload)
		r.Post("/user-profile/upload", profiles.HandleUpload)
	})

	return &harness{t: t, up: up, store: store, router: r, sid: xid.New().String()}
}

func (h *harness) session() *session.Session {
	return session.New(h.sid, h.store)
}

func (h *harness) login(token string) {
	h.t.Helper()
	require.NoError(h.t, h.session().SetCredentials(context.Background(), model.Credentials{
		AccessToken: token, RefreshToken: "r1", Email: "u@x.com",
	}))
}

func (h *harness) credentials() model.Credentials {
	h.t.Helper()
	creds, err := h.session().Credentials(context.Background())
	require.NoError(h.t, err)
	return creds
}

func (h *harness) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: h.sid})
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(target string) *httptest.ResponseRecorder {
	return h.do(http.MethodGet, target, nil, "")
}

func (h *harness) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

// flashOf decodes the notice a response queued, if any.
func flashOf(t *testing.T, rec *httptest.ResponseRecorder) (flash.Notice, bool) {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == flash.CookieName && c.MaxAge > 0 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(c)
			return flash.Pop(httptest.NewRecorder(), req)
		}
	}
	return flash.Notice{}, false
}

// pageID pulls the instance id out of a redirect or form action.
func pageID(t *testing.T, target string) string {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)
	id := u.Query().Get(pageParam)
	require.NotEmpty(t, id)
	return id
}

type multipartBody struct {
	buf *bytes.Buffer
	mw  *multipart.Writer
}

func newMultipartBody() *multipartBody {
	buf := &bytes.Buffer{}
	return &multipartBody{buf: buf, mw: multipart.NewWriter(buf)}
}

func (m *multipartBody) field(name, value string) *multipartBody {
	_ = m.mw.WriteField(name, value)
	return m
}

func (m *multipartBody) file(name, filename, content string) *multipartBody {
	w, _ := m.mw.CreateFormFile(name, filename)
	_, _ = io.WriteString(w, content)
	return m
}

func (m *multipartBody) finish() (io.Reader, string) {
	_ = m.mw.Close()
	return m.buf, m.mw.FormDataContentType()
}

func httptestRecorder() http.ResponseWriter {
	return httptest.NewRecorder()
}

// actionOf finds the first form action or link in body starting with prefix
// and returns it unescaped.
func actionOf(t *testing.T, body, prefix string) string {
	t.Helper()
	i := strings.Index(body, `"`+prefix)
	require.GreaterOrEqual(t, i, 0, "no %s in page", prefix)
	rest := body[i+1:]
	end := strings.Index(rest, `"`)
	require.Greater(t, end, 0)
	return strings.ReplaceAll(rest[:end], "&amp;", "&")
}
