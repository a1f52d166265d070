package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/vidshare/internal/auth"
	"github.com/sakif/vidshare/internal/flash"
)

// pageNames lists every page template. Each is parsed together with base.html.
var pageNames = []string{"feed", "login", "signup", "profile", "video"}

// refreshSeconds is the meta refresh delay of a page still loading.
const refreshSeconds = 1

// Renderer executes page templates.
//
// TEMPLATE COMPOSITION:
// base.html defines the layout and calls {{template "content" .}}. Each page
// file defines "content". A page is parsed once at startup together with the
// layout, so pages cannot see each other's definitions.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses templates/base.html and every page under templates/
// in fsys.
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).ParseFS(fsys, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// pageData is what base.html receives. Content is the page's own data.
type pageData struct {
	Title      string
	Notices    []flash.Notice
	Authorized bool
	Email      string
	// RefreshURL, when set, makes the browser re-request the page shortly.
	RefreshURL     string
	RefreshSeconds int
	// Overlay blocks the page while an upload runs.
	Overlay bool
	Content any
}

func newPage(title string, authz auth.Authorization) pageData {
	data := pageData{Title: title, RefreshSeconds: refreshSeconds}
	if a, ok := authz.(auth.Authorized); ok {
		data.Authorized = true
		data.Email = a.Email
	}
	return data
}

// notify appends a notice shown on this render.
func (d *pageData) notify(level flash.Level, text string) {
	d.Notices = append(d.Notices, flash.Notice{Level: level, Text: text})
}

// render executes page into a buffer and writes it with status. A queued
// flash notice is consumed and shown first.
//
// Rendering to a buffer means a template error still produces a clean 500
// instead of half a page.
func (rr *Renderer) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := rr.pages[page]
	if !ok {
		rr.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if n, ok := flash.Pop(w, r); ok {
		data.Notices = append([]flash.Notice{n}, data.Notices...)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rr.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		rr.logger.Debug("writing page", slog.String("error", err.Error()))
	}
}
