// Package api is the HTTP client for the remote video REST API.
//
// Client.Request is the single entry point every endpoint goes through. It
// joins paths onto the configured base URL, attaches the bearer token when
// asked to, sends JSON or streamed multipart bodies, and converts every
// failure into the apperror taxonomy. It never retries and never refreshes a
// token: a 401 on an authenticated call is reported as
// apperror.ErrSessionExpired and the caller decides what to do.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/logging"
	"github.com/sakif/vidshare/internal/session"
)

const tracerName = "github.com/sakif/vidshare/internal/api"

// maxResponseBytes caps how much of a response body is buffered.
const maxResponseBytes = 10 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.example.com/api.
	BaseURL string
	// Timeout bounds each request. Zero disables it.
	Timeout time.Duration
	// UploadTimeout bounds multipart uploads. Zero disables it.
	UploadTimeout time.Duration
}

// Client talks to the REST API. A Client is safe for concurrent use; bind it
// to a browser session with WithSession before making authenticated calls.
type Client struct {
	base          *url.URL
	http          *http.Client
	timeout       time.Duration
	uploadTimeout time.Duration
	session       *session.Session
	metrics       *Metrics
	tracer        trace.Tracer
	logger        *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records every request in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the fallback logger for requests whose context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New validates cfg and returns a Client without a session.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("api: base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base URL %q must be http or https", cfg.BaseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	base.RawPath = ""

	c := &Client{
		base:          base,
		http:          &http.Client{},
		timeout:       cfg.Timeout,
		uploadTimeout: cfg.UploadTimeout,
		tracer:        otel.Tracer(tracerName),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithSession returns a copy of c bound to s. The copy shares the transport,
// metrics and tracer.
func (c *Client) WithSession(s *session.Session) *Client {
	cp := *c
	cp.session = s
	return &cp
}

// Options describe one request.
type Options struct {
	// Endpoint labels the request in metrics and traces, e.g. "/videos/:id/".
	// Defaults to the path.
	Endpoint string
	Query    url.Values
	// JSON is encoded as the request body. Mutually exclusive with Form.
	JSON any
	// Form is streamed as multipart/form-data.
	Form *Multipart
	// Auth attaches the session's bearer token, if there is one.
	Auth bool
}

// Response is a buffered 2xx response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("api: decoding response: %w", err)
	}
	return nil
}

// Request sends one request and classifies the outcome. A nil error means a
// 2xx status.
func (c *Client) Request(ctx context.Context, method, path string, opts Options) (*Response, error) {
	if opts.JSON != nil && opts.Form != nil {
		return nil, errors.New("api: a request has either a JSON or a multipart body")
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = path
	}

	timeout := c.timeout
	if opts.Form != nil {
		timeout = c.uploadTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, method+" "+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	resp, err := c.do(ctx, method, path, opts)
	outcome := outcomeOf(err)
	c.metrics.observe(endpoint, method, outcome, time.Since(start))

	if resp != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	}
	if err != nil {
		span.SetStatus(codes.Error, outcome)
		logging.FromContext(ctx).Debug("api request failed",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, opts Options) (*Response, error) {
	body, contentType, err := c.body(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, opts.Query), body)
	if err != nil {
		closeBody(body)
		return nil, fmt.Errorf("api: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	bearer := false
	if opts.Auth {
		bearer, err = c.authorize(ctx, req)
		if err != nil {
			closeBody(body)
			return nil, err
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	res, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Network(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, apperror.Network(err)
	}

	out := &Response{Status: res.StatusCode, Header: res.Header, Body: data}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return out, classify(res.StatusCode, res.Header.Get("Content-Type"), data, bearer)
	}
	return out, nil
}

// closeBody stops a multipart stream that will never be sent.
func closeBody(body io.Reader) {
	if closer, ok := body.(io.Closer); ok {
		closer.Close()
	}
}

// authorize sets the bearer header from the bound session. It reports whether
// a header was set; an anonymous session sends none and the server decides.
func (c *Client) authorize(ctx context.Context, req *http.Request) (bool, error) {
	if c.session == nil {
		return false, nil
	}
	creds, err := c.session.Credentials(ctx)
	if err != nil {
		return false, fmt.Errorf("api: reading credentials: %w", err)
	}
	if creds.Anonymous() {
		return false, nil
	}
	tok := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}
	tok.SetAuthHeader(req)
	return true, nil
}

func (c *Client) body(opts Options) (io.Reader, string, error) {
	switch {
	case opts.Form != nil:
		r, contentType := opts.Form.stream()
		return r, contentType, nil
	case opts.JSON != nil:
		data, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("api: encoding body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	default:
		return nil, "", nil
	}
}

// url joins path onto the base. path is already escaped; the API's routes
// end in a slash and path is used as is.
func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	raw := c.base.EscapedPath() + "/" + strings.TrimPrefix(path, "/")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		u.Path = unescaped
		u.RawPath = raw
	} else {
		u.Path = raw
		u.RawPath = ""
	}
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// classify turns a non-2xx response into an apperror.
func classify(status int, contentType string, body []byte, bearer bool) error {
	if status == http.StatusUnauthorized && bearer {
		return apperror.SessionExpired()
	}
	if status == http.StatusNotFound {
		return &apperror.AppError{Err: apperror.ErrNotFound, Status: status}
	}
	if verr := validationPayload(contentType, body); verr != nil {
		verr.Status = status
		return verr
	}
	return apperror.Upstream(status, "")
}

// messageKeys are read as a payload's top-level text rather than field errors.
var messageKeys = []string{"message", "detail", "error"}

// validationPayload parses a JSON object body into a ValidationError. Field
// errors come from "errors" when present, otherwise from every top-level key
// that is not a message key.
func validationPayload(contentType string, body []byte) *apperror.ValidationError {
	if !strings.Contains(contentType, "json") && !looksLikeObject(body) {
		return nil
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return nil
	}

	verr := &apperror.ValidationError{}
	for _, key := range messageKeys {
		if raw, ok := payload[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				verr.Message = s
				break
			}
		}
	}

	fields, nested := payload, false
	if raw, ok := payload["errors"]; ok {
		nested = true
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(raw, &inner); err == nil && inner != nil {
			fields = inner
		} else {
			fields = map[string]json.RawMessage{"errors": raw}
		}
	}
	for name, raw := range fields {
		if !nested && isMessageKey(name) {
			continue
		}
		for _, msg := range fieldMessages(raw) {
			verr.Add(name, msg)
		}
	}
	return verr
}

func isMessageKey(name string) bool {
	for _, k := range messageKeys {
		if name == k {
			return true
		}
	}
	return false
}

// fieldMessages accepts "msg", ["a","b"] or any other JSON value, which is
// kept in its compact encoding.
func fieldMessages(raw json.RawMessage) []string {
	var one string
	if json.Unmarshal(raw, &one) == nil {
		return []string{one}
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		return many
	}
	var buf bytes.Buffer
	if json.Compact(&buf, raw) == nil {
		return []string{buf.String()}
	}
	return []string{string(raw)}
}

func looksLikeObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperror.ErrNetwork):
		return "network"
	case errors.Is(err, apperror.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, apperror.ErrValidation):
		return "validation"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrUpstream):
		return "upstream"
	default:
		return "error"
	}
}
