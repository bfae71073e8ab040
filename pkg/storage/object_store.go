// Package storage keeps rendered story exports in object storage so share
// recipients can download them without hitting the app again.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"chatfic/pkg/domain"
	"chatfic/pkg/export"
)

// ObjectStore provides access to object storage.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// MinioStore implements ObjectStore for MinIO/S3 compatible storage.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// Put uploads an object.
func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// PresignGet generates a pre-signed GET URL.
func (m *MinioStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return url.String(), nil
}

// Delete removes an object.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ExportArchive renders every export format of a story, uploads them, and
// returns presigned download URLs keyed by format name.
type ExportArchive struct {
	objects ObjectStore
	expiry  time.Duration
}

// NewExportArchive wraps an ObjectStore. expiry bounds the lifetime of the
// returned download URLs; zero defaults to one hour.
func NewExportArchive(objects ObjectStore, expiry time.Duration) *ExportArchive {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &ExportArchive{objects: objects, expiry: expiry}
}

// Archive uploads all formats concurrently. One failed format fails the
// whole archive; a partial export has no value to the caller. Each run
// writes under a fresh run ID so an archive of a later revision never
// overwrites URLs handed out earlier.
func (a *ExportArchive) Archive(ctx context.Context, story domain.Story) (map[export.Format]string, error) {
	formats := []export.Format{export.FormatText, export.FormatMarkdown, export.FormatPrint}
	urls := make(map[export.Format]string, len(formats))
	var mu sync.Mutex

	runID := uuid.NewString()
	g, ctx := errgroup.WithContext(ctx)
	for _, format := range formats {
		format := format
		g.Go(func() error {
			body, err := export.Render(story, format)
			if err != nil {
				return err
			}
			key := objectKey(story.ID, runID, format)
			if err := a.objects.Put(ctx, key, strings.NewReader(body), int64(len(body)), export.ContentType(format)); err != nil {
				return fmt.Errorf("archive %s: %w", format, err)
			}
			url, err := a.objects.PresignGet(ctx, key, a.expiry)
			if err != nil {
				return fmt.Errorf("presign %s: %w", format, err)
			}
			mu.Lock()
			urls[format] = url
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func objectKey(storyID, runID string, format export.Format) string {
	ext := "txt"
	if format == export.FormatMarkdown {
		ext = "md"
	}
	return fmt.Sprintf("exports/%s/%s/%s.%s", storyID, runID, format, ext)
}
