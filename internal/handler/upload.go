package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"slices"

	"github.com/sakif/vidshare/internal/apperror"
	"github.com/sakif/vidshare/internal/model"
)

// maxFieldBytes caps a single non-file form value.
const maxFieldBytes = 64 << 10

// stagedForm is a multipart body read off the wire: plain values in memory,
// files copied to disk.
//
// STREAMING:
// r.ParseMultipartForm buffers up to a memory limit and spills the rest to
// its own temp files, which are gone once the request ends. Uploads outlive
// the request (they are sent upstream from a background goroutine), so parts
// are streamed with r.MultipartReader straight into files the caller owns.
type stagedForm struct {
	values url.Values
	files  map[string]*model.FilePart
}

// readMultipart stages the request's multipart body. Only fields named in
// fileFields are kept as files; a file part with an empty filename (no file
// chosen) is ignored. On error every staged file is removed.
func readMultipart(w http.ResponseWriter, r *http.Request, dir string, maxBytes int64, fileFields ...string) (*stagedForm, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperror.ValidationFailed("form", "must be sent as multipart/form-data")
	}

	form := &stagedForm{values: url.Values{}, files: map[string]*model.FilePart{}}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			form.discard()
			return nil, bodyError(err, maxBytes)
		}

		name := part.FormName()
		switch {
		case name == "":
		case part.FileName() != "" && slices.Contains(fileFields, name):
			f, err := stageFile(dir, part)
			if err != nil {
				form.discard()
				return nil, bodyError(err, maxBytes)
			}
			if prev := form.files[name]; prev != nil {
				_ = os.Remove(prev.Path)
			}
			form.files[name] = f
		case part.FileName() != "":
			// A file nobody asked for is drained, not kept.
			_, _ = io.Copy(io.Discard, part)
		default:
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				form.discard()
				return nil, bodyError(err, maxBytes)
			}
			form.values.Add(name, string(value))
		}
		_ = part.Close()
	}
}

// file returns the staged file for name, or nil.
func (f *stagedForm) file(name string) *model.FilePart {
	return f.files[name]
}

// discard removes every staged file.
func (f *stagedForm) discard() {
	for name, file := range f.files {
		_ = os.Remove(file.Path)
		delete(f.files, name)
	}
}

func stageFile(dir string, part *multipart.Part) (*model.FilePart, error) {
	tmp, err := os.CreateTemp(dir, "vidshare-upload-*")
	if err != nil {
		return nil, fmt.Errorf("handler: staging upload: %w", err)
	}
	n, copyErr := io.Copy(tmp, part)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		return nil, errors.Join(copyErr, closeErr)
	}

	contentType := part.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &model.FilePart{
		Filename:    part.FileName(),
		ContentType: contentType,
		Path:        tmp.Name(),
		Size:        n,
	}, nil
}

func bodyError(err error, maxBytes int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ValidationFailed("upload", fmt.Sprintf("must be at most %d MiB", maxBytes>>20))
	}
	return fmt.Errorf("handler: reading multipart body: %w", err)
}
