package uploader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(store *memStore, now time.Time) *Cache {
	c := NewCache(store, testLogger())
	c.now = func() time.Time { return now }
	return c
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "latestUpload_u1", CacheKey("u1"))
}

func TestCacheRestoreFreshness(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		age       time.Duration
		wantFound bool
	}{
		{name: "just uploaded", age: 0, wantFound: true},
		{name: "22 hours", age: 22 * time.Hour, wantFound: true},
		{name: "22h59m", age: 22*time.Hour + 59*time.Minute, wantFound: true},
		{name: "exactly 23 hours", age: FreshFor, wantFound: true},
		{name: "23h01m", age: 23*time.Hour + time.Minute, wantFound: false},
		{name: "just past 23 hours", age: FreshFor + time.Second, wantFound: false},
		{name: "two days", age: 48 * time.Hour, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			seed := newTestCache(store, now.Add(-tt.age))
			require.NoError(t, seed.Save(context.Background(), "u1", UploadRecord{ID: "v1", UploadDate: now.Add(-tt.age)}))

			rec, err := newTestCache(store, now).Restore(context.Background(), "u1")

			require.NoError(t, err)
			if tt.wantFound {
				require.NotNil(t, rec)
				assert.Equal(t, "v1", rec.ID)
				assert.Contains(t, store.data, "latestUpload_u1")
			} else {
				assert.Nil(t, rec)
				assert.NotContains(t, store.data, "latestUpload_u1")
			}
		})
	}
}

func TestCacheRestoreMissing(t *testing.T) {
	rec, err := newTestCache(newMemStore(), time.Now()).Restore(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCacheRestoreCorruptEntryIsDeleted(t *testing.T) {
	store := newMemStore()
	store.data["latestUpload_u1"] = []byte("{not json")

	rec, err := newTestCache(store, time.Now()).Restore(context.Background(), "u1")

	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, []string{"latestUpload_u1"}, store.deletes)
}

func TestCacheIsPerUser(t *testing.T) {
	now := time.Now()
	store := newMemStore()
	c := newTestCache(store, now)

	require.NoError(t, c.Save(context.Background(), "u1", UploadRecord{ID: "a", UploadDate: now}))
	require.NoError(t, c.Save(context.Background(), "u2", UploadRecord{ID: "b", UploadDate: now}))

	rec, err := c.Restore(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "b", rec.ID)
}
