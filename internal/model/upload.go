package model

// FilePart is a file staged on local disk, waiting to be sent upstream as a
// multipart part.
type FilePart struct {
	Filename    string
	ContentType string
	Path        string
	Size        int64
}

// UploadDraft is the upload modal's form. It lives only while the modal is
// open and is discarded on a successful submit or when the modal closes.
type UploadDraft struct {
	Title       string    `form:"title" validate:"required"`
	Description string    `form:"description"`
	VideoFile   *FilePart `form:"video_file" validate:"required"`
	Thumbnail   *FilePart `form:"thumbnail" validate:"required"`
}

// Files lists the staged files of the draft that are present.
func (d UploadDraft) Files() []*FilePart {
	var files []*FilePart
	for _, f := range []*FilePart{d.VideoFile, d.Thumbnail} {
		if f != nil {
			files = append(files, f)
		}
	}
	return files
}

// Merge fills d's missing files from prev, so a resubmitted draft keeps the
// files staged by an earlier attempt.
func (d UploadDraft) Merge(prev UploadDraft) UploadDraft {
	if d.VideoFile == nil {
		d.VideoFile = prev.VideoFile
	}
	if d.Thumbnail == nil {
		d.Thumbnail = prev.Thumbnail
	}
	return d
}
