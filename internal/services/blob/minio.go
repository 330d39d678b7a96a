package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const thumbnailSize = 256

// objectClient is the part of *minio.Client the store uses.
type objectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Minio keeps images in an S3 compatible bucket. Every image also gets a
// JPEG thumbnail stored next to it, removed together with the original.
// Thumbnail failures are logged and never fail the call.
type Minio struct {
	client     objectClient
	bucketName string
	log        *slog.Logger
}

var _ Store = (*Minio)(nil)

func NewMinio(log *slog.Logger) (*Minio, error) {
	endpoint := getEnv("MINIO_ENDPOINT", "localhost:9000")
	accessKey := getEnv("MINIO_ACCESS_KEY", "minioadmin")
	secretKey := getEnv("MINIO_SECRET_KEY", "minioadmin")
	bucketName := getEnv("MINIO_BUCKET", "feed-images")
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	return &Minio{client: client, bucketName: bucketName, log: log}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
	}
	return nil
}

func (s *Minio) Put(ctx context.Context, up Upload) (string, error) {
	if !Allowed(up.ContentType) {
		return "", ErrUnsupportedType
	}

	key := NewKey(up.Filename, up.ContentType)
	if err := s.upload(ctx, key, up.Data, normalizeType(up.ContentType)); err != nil {
		return "", err
	}

	thumb, err := thumbnail(up.Data)
	if err != nil {
		s.log.Warn("creating thumbnail failed", "key", key, "error", err)
		return key, nil
	}
	if err := s.upload(ctx, thumbnailKey(key), thumb, "image/jpeg"); err != nil {
		s.log.Warn("storing thumbnail failed", "key", key, "error", err)
	}
	return key, nil
}

func (s *Minio) upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return nil
}

func (s *Minio) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !ValidKey(key) {
		return nil, "", ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return obj, info.ContentType, nil
}

// Delete removes the original and its thumbnail.
func (s *Minio) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return ErrNotFound
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, thumbnailKey(key), minio.RemoveObjectOptions{}); err != nil {
		s.log.Warn("removing thumbnail failed", "key", key, "error", err)
	}
	return nil
}

func thumbnailKey(key string) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "_thumb.jpg"
}

func thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	resized := imaging.Fit(img, thumbnailSize, thumbnailSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, errors.Join(errors.New("encoding thumbnail"), err)
	}
	return buf.Bytes(), nil
}
