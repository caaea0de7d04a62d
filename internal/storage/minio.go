package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/recitalsite/recital/backend/go-services/internal/config"
)

// MaxImageSize caps a single story photo upload.
const MaxImageSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageKey validates the upload and returns the object key for it.
func ImageKey(contentType string, size int64) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := imageExt[ct]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if size <= 0 || size > MaxImageSize {
		return "", ErrTooLarge
	}
	return path.Join("stories", uuid.NewString()+ext), nil
}

// ImageStore keeps story photos and hands out URLs usable as Story.ImageURL.
type ImageStore struct {
	client *minio.Client
	bucket string
	urlTTL time.Duration
}

// NewImageStore connects to MinIO and ensures the bucket exists.
func NewImageStore(ctx context.Context, cfg config.MinIOConfig) (*ImageStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := newImageStore(mc, cfg.Bucket, cfg.URLTTL)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

func newImageStore(mc *minio.Client, bucket string, ttl time.Duration) *ImageStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	// presigned URLs are capped at seven days
	if ttl > 7*24*time.Hour {
		ttl = 7 * 24 * time.Hour
	}
	return &ImageStore{client: mc, bucket: bucket, urlTTL: ttl}
}

// Upload stores an image and returns its key and a presigned URL.
func (s *ImageStore) Upload(ctx context.Context, reader io.Reader, size int64, contentType string) (key, imageURL string, err error) {
	key, err = ImageKey(contentType, size)
	if err != nil {
		return "", "", err
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", "", fmt.Errorf("minio put %s: %w", key, err)
	}
	imageURL, err = s.URL(ctx, key)
	if err != nil {
		return "", "", err
	}
	return key, imageURL, nil
}

// URL returns a presigned GET URL for key.
func (s *ImageStore) URL(ctx context.Context, key string) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.urlTTL, make(url.Values))
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}
