package uploader

import (
	"context"
	"fmt"
	"os"
	"time"
)

const (
	MaxFileBytes int64 = 100 << 20
	MinDuration        = 30 * time.Second
	MaxDuration        = 300 * time.Second
)

// Prober reports the playback duration of a media file.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// ValidateFile checks the size limit first and only probes files that pass
// it. Both duration bounds are inclusive.
func ValidateFile(ctx context.Context, path string, prober Prober) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxFileBytes {
		return fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, path, info.Size())
	}

	d, err := prober.Duration(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	if d < MinDuration {
		return fmt.Errorf("%w: got %s", ErrVideoTooShort, d.Round(time.Millisecond))
	}
	if d > MaxDuration {
		return fmt.Errorf("%w: got %s", ErrVideoTooLong, d.Round(time.Millisecond))
	}
	return nil
}
