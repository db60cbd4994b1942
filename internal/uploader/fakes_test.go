package uploader

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/localstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProber struct {
	duration time.Duration
	err      error
	calls    int
}

func (f *fakeProber) Duration(context.Context, string) (time.Duration, error) {
	f.calls++
	return f.duration, f.err
}

type fakeTranscoder struct {
	out        []byte
	err        error
	gotRaw     []byte
	gotProfile domain.CompressionProfile
	calls      int
}

func (f *fakeTranscoder) Compress(_ context.Context, raw []byte, profile domain.CompressionProfile) ([]byte, error) {
	f.calls++
	f.gotRaw = raw
	f.gotProfile = profile
	return f.out, f.err
}

type fakeSender struct {
	rec         *UploadRecord
	err         error
	chunks      int
	gotData     []byte
	gotFilename string
	gotUserID   string
	calls       int
}

// Upload reports progress in f.chunks equal steps before returning.
func (f *fakeSender) Upload(_ context.Context, data []byte, filename, userID string, onProgress func(sent, total int64)) (*UploadRecord, error) {
	f.calls++
	f.gotData = data
	f.gotFilename = filename
	f.gotUserID = userID

	total := int64(len(data))
	for i := 1; i <= f.chunks && onProgress != nil; i++ {
		onProgress(total*int64(i)/int64(f.chunks), total)
	}
	return f.rec, f.err
}

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes []string
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, localstore.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	delete(m.data, key)
	return nil
}

// writeVideo creates a file of the given size in a temp dir.
func writeVideo(t *testing.T, name string, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return path
}
