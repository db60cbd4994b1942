// Package localstore is the durable key/value cache the CLI keeps between
// runs. Values are opaque bytes; callers encode them as JSON.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("localstore: key not found")

// Store is implemented by every cache backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateKey rejects keys that are empty, contain path separators, or
// would resolve outside the cache directory.
func ValidateKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return errors.New("localstore: key is empty")
	}
	if trimmed != key || !keyPattern.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("localstore: invalid key %q", key)
	}
	return nil
}
