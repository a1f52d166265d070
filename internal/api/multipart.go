package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"

	"github.com/sakif/vidshare/internal/model"
)

// Multipart is a multipart/form-data body. Files are read from their staged
// paths while the request is being sent, so an upload never sits in memory.
type Multipart struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name, value string
}

type formFile struct {
	name string
	part *model.FilePart
}

// NewMultipart returns an empty body.
func NewMultipart() *Multipart {
	return &Multipart{}
}

// Field appends a text field.
func (m *Multipart) Field(name, value string) *Multipart {
	m.fields = append(m.fields, formField{name: name, value: value})
	return m
}

// File appends a file part. A nil part is skipped, which is how optional
// files are left out.
func (m *Multipart) File(name string, part *model.FilePart) *Multipart {
	if part != nil {
		m.files = append(m.files, formFile{name: name, part: part})
	}
	return m
}

// stream starts writing the body into a pipe and returns its read side.
func (m *Multipart) stream() (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(m.write(mw))
	}()

	return pr, mw.FormDataContentType()
}

func (m *Multipart) write(mw *multipart.Writer) error {
	for _, f := range m.fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("api: writing field %s: %w", f.name, err)
		}
	}
	for _, f := range m.files {
		if err := writeFile(mw, f); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFile(mw *multipart.Writer, f formFile) error {
	src, err := os.Open(f.part.Path)
	if err != nil {
		return fmt.Errorf("api: opening %s: %w", f.name, err)
	}
	defer src.Close()

	contentType := f.part.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(f.name), escapeQuotes(f.part.Filename)))
	h.Set("Content-Type", contentType)

	dst, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("api: creating part %s: %w", f.name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("api: copying %s: %w", f.name, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
