package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
)

// Disk keeps images under a local directory.
type Disk struct {
	root string
}

var _ Store = (*Disk)(nil)

// NewDisk stores files below root, creating it if needed. An empty root
// falls back to IMAGES_DIR, then the working directory.
func NewDisk(root string) (*Disk, error) {
	if root == "" {
		root = getEnv("IMAGES_DIR", ".")
	}
	if err := os.MkdirAll(filepath.Join(root, Prefix), 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) Put(_ context.Context, up Upload) (string, error) {
	if !Allowed(up.ContentType) {
		return "", ErrUnsupportedType
	}

	key := NewKey(up.Filename, up.ContentType)
	if err := os.WriteFile(d.path(key), up.Data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return key, nil
}

func (d *Disk) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	if !ValidKey(key) {
		return nil, "", ErrNotFound
	}
	f, err := os.Open(d.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return f, mime.TypeByExtension(filepath.Ext(key)), nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	if !ValidKey(key) {
		return ErrNotFound
	}
	if err := os.Remove(d.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(key))
}
