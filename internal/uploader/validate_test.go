package uploader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		duration time.Duration
		wantErr  error
		probed   bool
	}{
		{name: "typical", size: 5 << 20, duration: 90 * time.Second, probed: true},
		{name: "exactly max size", size: MaxFileBytes, duration: time.Minute, probed: true},
		{name: "one byte over", size: MaxFileBytes + 1, duration: time.Minute, wantErr: ErrFileTooLarge},
		{name: "shortest allowed", size: 1024, duration: MinDuration, probed: true},
		{name: "too short", size: 1024, duration: 29 * time.Second, wantErr: ErrVideoTooShort, probed: true},
		{name: "29.9 seconds", size: 1024, duration: 29900 * time.Millisecond, wantErr: ErrVideoTooShort, probed: true},
		{name: "longest allowed", size: 1024, duration: MaxDuration, probed: true},
		{name: "too long", size: 1024, duration: 301 * time.Second, wantErr: ErrVideoTooLong, probed: true},
		{name: "300.1 seconds", size: 1024, duration: 300100 * time.Millisecond, wantErr: ErrVideoTooLong, probed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeVideo(t, "clip.mov", tt.size)
			prober := &fakeProber{duration: tt.duration}

			err := ValidateFile(context.Background(), path, prober)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.probed, prober.calls == 1)
		})
	}
}

// outputProber answers with a canned ffprobe JSON document.
type outputProber struct{ out string }

func (p outputProber) Duration(context.Context, string) (time.Duration, error) {
	return parseProbeOutput([]byte(p.out))
}

func TestValidateFileProbedBoundaries(t *testing.T) {
	tests := []struct {
		duration string
		wantErr  error
	}{
		{"29.900000", ErrVideoTooShort},
		{"30.000000", nil},
		{"300.000000", nil},
		{"300.100000", ErrVideoTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			path := writeVideo(t, "clip.mov", 1024)
			prober := outputProber{out: `{"format":{"duration":"` + tt.duration + `"}}`}

			err := ValidateFile(context.Background(), path, prober)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFileProbeError(t *testing.T) {
	path := writeVideo(t, "clip.mov", 1024)
	prober := &fakeProber{err: errors.New("exit status 1")}

	err := ValidateFile(context.Background(), path, prober)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProbeFailed)
	assert.ErrorContains(t, err, "exit status 1")
}

func TestValidateFileMissing(t *testing.T) {
	err := ValidateFile(context.Background(), "/nonexistent/clip.mov", &fakeProber{})
	assert.Error(t, err)
}

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    time.Duration
		wantErr bool
	}{
		{name: "fractional", out: `{"format":{"duration":"61.500000"}}`, want: 61500 * time.Millisecond},
		{name: "integer", out: `{"format":{"duration":"30"}}`, want: 30 * time.Second},
		{name: "missing", out: `{"format":{}}`, wantErr: true},
		{name: "not a number", out: `{"format":{"duration":"N/A"}}`, wantErr: true},
		{name: "negative", out: `{"format":{"duration":"-1"}}`, wantErr: true},
		{name: "garbage", out: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbeOutput([]byte(tt.out))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
