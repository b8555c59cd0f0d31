package extraction

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var mimeTypes = map[string]string{
	".mp4": "video/mp4",
	".avi": "video/x-msvideo",
	".mov": "video/quicktime",
	".mkv": "video/x-matroska",
}

// Video is a validated local recording.
type Video struct {
	Path      string
	MimeType  string
	SizeBytes int64
}

// DisplayName is the name shown for the upload.
func (v Video) DisplayName() string {
	return filepath.Base(v.Path)
}

// SupportedExtensions lists accepted file extensions in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(mimeTypes))
	for ext := range mimeTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// MimeTypeFor returns the MIME type for a supported extension, matched case-insensitively.
func MimeTypeFor(path string) (string, bool) {
	mime, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	return mime, ok
}

// ValidateVideo checks that path is an existing regular file with a supported
// extension.
func ValidateVideo(path string) (Video, error) {
	if strings.TrimSpace(path) == "" {
		return Video{}, &InvalidInputError{Path: path, Reason: "path is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Video{}, &InvalidInputError{Path: path, Reason: "video file not found"}
		}
		return Video{}, &InvalidInputError{Path: path, Reason: "cannot stat video file", Err: err}
	}
	if !info.Mode().IsRegular() {
		return Video{}, &InvalidInputError{Path: path, Reason: "not a regular file"}
	}
	mime, ok := MimeTypeFor(path)
	if !ok {
		return Video{}, &InvalidInputError{
			Path:   path,
			Reason: "unsupported format; expected one of " + strings.Join(SupportedExtensions(), ", "),
		}
	}
	return Video{Path: path, MimeType: mime, SizeBytes: info.Size()}, nil
}
