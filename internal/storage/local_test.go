package storage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files/",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()
	key := VideoKey(uuid.New(), uuid.New(), "standup.MP4", "video/mp4")

	info, err := s.Put(ctx, key, strings.NewReader("frames"), PutOptions{ContentType: "video/mp4"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size)
	assert.Equal(t, "video/mp4", info.ContentType)

	rc, got, err := s.Get(ctx, key)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "frames", string(body))
	assert.Equal(t, int64(6), got.Size)

	url, err := s.URL(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/"+key, url)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "delete is idempotent")

	_, _, err = s.Get(ctx, key)
	assert.True(t, IsNotFound(err))
}

func TestLocalStorage_PutRespectsOverwriteAndMaxSize(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "videos/a.mp4", strings.NewReader("one"), PutOptions{})
	require.NoError(t, err)

	_, err = s.Put(ctx, "videos/a.mp4", strings.NewReader("two"), PutOptions{})
	assert.ErrorIs(t, err, ErrKeyExists)

	_, err = s.Put(ctx, "videos/a.mp4", strings.NewReader("three"), PutOptions{Overwrite: true})
	assert.NoError(t, err)

	_, err = s.Put(ctx, "videos/big.mp4", strings.NewReader("0123456789"), PutOptions{MaxSize: 4})
	assert.True(t, IsTooLarge(err))
	_, _, err = s.Get(ctx, "videos/big.mp4")
	assert.True(t, IsNotFound(err), "oversized upload must not be left behind")
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s := newTestLocalStorage(t)
	for _, key := range []string{"", "../etc/passwd", "videos/../../x", "/abs", "a\\b"} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"), PutOptions{})
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestLocalStorage_Handler(t *testing.T) {
	s := newTestLocalStorage(t)
	_, err := s.Put(context.Background(), "videos/u/v.mp4", strings.NewReader("data"), PutOptions{})
	require.NoError(t, err)

	h := http.StripPrefix("/files", s.Handler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/videos/u/v.mp4", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data", rec.Body.String())
}

func TestVideoKey(t *testing.T) {
	user := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	video := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t,
		"videos/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222.mov",
		VideoKey(user, video, "Team Sync.MOV", "video/quicktime"))
	assert.Equal(t,
		"videos/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222.webm",
		VideoKey(user, video, "recording", "video/webm"))
	assert.Equal(t,
		"videos/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/poster.jpg",
		PosterKey(user, video))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "video/mp4", DetectContentType("", "clip.mp4"))
	assert.Equal(t, "video/webm", DetectContentType("application/octet-stream", "clip.webm"))
	assert.Equal(t, "video/quicktime", DetectContentType("video/quicktime", "clip.bin"))
	assert.True(t, IsAllowedVideoType("video/mp4; codecs=avc1"))
	assert.False(t, IsAllowedVideoType("image/png"))
}
