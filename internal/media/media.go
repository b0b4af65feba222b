// Package media describes inbound media objects and decides which of them
// qualify for trimming.
package media

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedMediaType reports media that is neither a video message
	// nor a document with a recognizable video MIME type or extension.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrFileTooLarge reports media above the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// SourceRef is the opaque handle used to re-fetch the original media bytes
// from the message source.
type SourceRef struct {
	ChatID    int64
	MessageID int
	FileID    string
}

// Info describes one inbound media object as declared by the platform.
type Info struct {
	Ref      SourceRef
	FileName string
	MimeType string
	Size     int64
	// Duration is the declared media duration in seconds; zero when the
	// platform did not report one.
	Duration int
	// Video is true for native video messages, false for documents.
	Video bool
}

// videoExtensions is the known video file extension set used to qualify
// documents that lack a useful MIME type.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
	".m4v":  {},
	".mpg":  {},
	".mpeg": {},
	".wmv":  {},
	".flv":  {},
	".ts":   {},
}

// HasVideoExtension reports whether the file name carries a known video extension.
func HasVideoExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	_, ok := videoExtensions[ext]
	return ok
}

// IsVideo reports whether the media object should be treated as a video:
// native video messages always, documents when either the declared MIME
// type is video/* or the file name has a known video extension.
func IsVideo(info Info) bool {
	if info.Video {
		return true
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(info.MimeType)), "video/") {
		return true
	}
	return HasVideoExtension(info.FileName)
}

// Qualify validates an inbound media object against the trim entry rules.
// Oversized or non-video media is rejected; neither creates a session.
func Qualify(info Info, maxBytes int64) error {
	if !IsVideo(info) {
		return ErrUnsupportedMediaType
	}
	if maxBytes > 0 && info.Size > maxBytes {
		return ErrFileTooLarge
	}
	return nil
}

// DisplayName returns the declared file name, or a stable default when the
// platform omitted one.
func DisplayName(info Info) string {
	name := strings.TrimSpace(info.FileName)
	if name == "" {
		return "video.mp4"
	}
	return name
}
