package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapS3Error(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"NoSuchKey", ErrNotFound},
		{"NotFound", ErrNotFound},
		{"AccessDenied", ErrAccessDenied},
	}
	for _, tt := range tests {
		err := wrapS3Error(&smithy.GenericAPIError{Code: tt.code})
		assert.ErrorIs(t, err, tt.want, tt.code)
	}

	other := wrapS3Error(errors.New("boom"))
	assert.False(t, IsNotFound(other))
	assert.Contains(t, other.Error(), "boom")
}

func TestR2Storage_PublicAndPresignedURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewR2Storage(R2Config{
		AccountID:       "acct",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BucketName:      "videos",
		PublicURL:       "https://cdn.example.com/",
	}, logger)
	require.NoError(t, err)

	url, err := s.URL(context.Background(), "videos/u/v.mp4", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/videos/u/v.mp4", url)

	signed, err := s.URL(context.Background(), "videos/u/v.mp4", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "https://acct.r2.cloudflarestorage.com/videos/videos/u/v.mp4?"), signed)
	assert.Contains(t, signed, "X-Amz-Signature=")

	_, err = s.URL(context.Background(), "../x", 0)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewR2Storage_RequiresBucket(t *testing.T) {
	_, err := NewR2Storage(R2Config{AccountID: "acct"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
