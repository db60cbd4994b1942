package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DukeRupert/notegenie/internal/localstore"
)

// FreshFor is how long a cached upload stays usable.
const FreshFor = 23 * time.Hour

// CacheKey names the durable entry holding userID's latest upload.
func CacheKey(userID string) string {
	return "latestUpload_" + userID
}

// Cache persists the latest upload per user across CLI runs.
type Cache struct {
	store  localstore.Store
	now    func() time.Time
	logger *slog.Logger
}

func NewCache(store localstore.Store, logger *slog.Logger) *Cache {
	return &Cache{store: store, now: time.Now, logger: logger}
}

func (c *Cache) Save(ctx context.Context, userID string, rec UploadRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode upload record: %w", err)
	}
	return c.store.Put(ctx, CacheKey(userID), data)
}

func (c *Cache) Clear(ctx context.Context, userID string) error {
	return c.store.Delete(ctx, CacheKey(userID))
}

// Restore returns the cached upload, or nil when there is none. Entries
// older than FreshFor and entries that no longer decode are deleted.
func (c *Cache) Restore(ctx context.Context, userID string) (*UploadRecord, error) {
	key := CacheKey(userID)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var rec UploadRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logger.Warn("discarding unreadable cached upload", "key", key, "error", err)
		return nil, c.store.Delete(ctx, key)
	}

	if age := c.now().Sub(rec.UploadDate); age > FreshFor {
		c.logger.Debug("discarding stale cached upload", "key", key, "age", age.Round(time.Second))
		return nil, c.store.Delete(ctx, key)
	}
	return &rec, nil
}
