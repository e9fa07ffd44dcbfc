// Package storage provides blob storage for inspection photos.
//
// Two implementations back the Storage interface: LocalStorage for
// development and S3Storage for any S3-compatible object store in
// production. Photos and their thumbnails are stored under per-tower keys.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Storage defines blob storage operations. All methods are context-aware.
type Storage interface {
	// Put stores data at the specified key. Fails with ErrKeyExists when the
	// key is taken and opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at the specified key. The caller must close
	// the reader. Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for accessing the object: a permanent public URL
	// when the store has one, otherwise a presigned URL valid for expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type; auto-detected when empty.
	ContentType string

	// MaxSize caps the object size in bytes; 0 means no limit. Oversized
	// uploads fail with ErrTooLarge.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool

	// Public marks the object publicly readable where the store supports
	// ACLs.
	Public bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	BasePath string

	// BaseURL is the public URL prefix for accessing files,
	// e.g. "http://localhost:8080/files".
	BaseURL string
}

// S3Config holds configuration for S3-compatible object storage.
type S3Config struct {
	// Endpoint is the service endpoint, e.g. a MinIO or cloud provider URL.
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the public base URL for the bucket (custom domain or
	// CDN). When empty, presigned URLs are used for all access.
	PublicURL string

	// Region defaults to "auto"; S3-compatible stores rarely care.
	Region string
}

// Provider identifiers used in configuration.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// PhotoKey generates a storage key for an uploaded inspection photo.
// Format: towers/{towerID}/{kind}/{uuid}.{ext}
func PhotoKey(towerID int64, kind, filename string) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("towers/%d/%s/%s%s", towerID, kind, uuid.New(), ext)
}

// ThumbnailKey derives the thumbnail key for a photo key. Thumbnails are
// always JPEG.
func ThumbnailKey(photoKey string) string {
	ext := filepath.Ext(photoKey)
	return photoKey[:len(photoKey)-len(ext)] + "_thumb.jpg"
}
