// Package blob stores uploaded post images.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrNotFound        = errors.New("object not found")
	ErrUploadFailed    = errors.New("upload failed")
	ErrDeleteFailed    = errors.New("delete failed")
)

// Prefix is the key namespace for post images; it doubles as the public
// path the images are served under.
const Prefix = "images"

var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpg":  ".jpg",
	"image/jpeg": ".jpg",
}

// Upload is a single uploaded file.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Store is the key to bytes storage for images.
type Store interface {
	// Put stores the upload and returns its key. ErrUnsupportedType is
	// returned, and nothing is stored, for content types outside the allowlist.
	Put(ctx context.Context, up Upload) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// Allowed reports whether contentType may be stored.
func Allowed(contentType string) bool {
	_, ok := allowedTypes[normalizeType(contentType)]
	return ok
}

func normalizeType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewKey builds a collision free key from the original filename.
func NewKey(filename, contentType string) string {
	name := unsafeChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "image" + allowedTypes[normalizeType(contentType)]
	}
	return Prefix + "/" + uuid.NewString() + "-" + name
}

// ValidKey rejects keys that escape the image namespace.
func ValidKey(key string) bool {
	if !strings.HasPrefix(key, Prefix+"/") {
		return false
	}
	clean := path.Clean(key)
	return clean == key && !strings.Contains(clean, "..")
}
