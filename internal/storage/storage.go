// Package storage provides object storage for uploaded recordings.
//
// Two backends implement Storage:
// - LocalStorage: files under a base directory, served over HTTP (development)
// - R2Storage: Cloudflare R2 through the S3 API (production)
package storage

import (
	"context"
	"io"
	"time"
)

// Storage stores and retrieves objects by key.
type Storage interface {
	// Put writes data at key and returns what was stored.
	// Returns ErrKeyExists when the key is taken and opts.Overwrite is false,
	// and ErrTooLarge when data exceeds opts.MaxSize.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) (ObjectInfo, error)

	// Get opens the object at key. The caller must close the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a retrievable URL for key. A zero expiry asks for a
	// permanent URL when the backend has one.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType of the object. Detected from the key when empty.
	ContentType string

	// Size is the length of data when known. Backends that need a content
	// length up front use it.
	Size int64

	// MaxSize rejects objects larger than this many bytes. Zero disables
	// the limit.
	MaxSize int64

	// Overwrite allows replacing an existing object.
	Overwrite bool
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

	// BaseURL is the public URL prefix under which BasePath is served.
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is an optional custom domain for the bucket. Without it all
	// URLs are presigned.
	PublicURL string

	// Region defaults to "auto".
	Region string

	// Endpoint overrides the account endpoint (S3-compatible test servers).
	Endpoint string
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)
