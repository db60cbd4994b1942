package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFProbe reads durations with the ffprobe binary at Path.
type FFProbe struct {
	Path string
}

var _ Prober = FFProbe{}

func (p FFProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	bin := p.Path
	if bin == "" {
		bin = "ffprobe"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return 0, fmt.Errorf("ffprobe: %w: %s", err, msg)
		}
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeOutput(out)
}

func parseProbeOutput(out []byte) (time.Duration, error) {
	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	if parsed.Format.Duration == "" {
		return 0, errors.New("ffprobe reported no duration")
	}

	secs, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", parsed.Format.Duration, err)
	}
	if secs < 0 {
		return 0, fmt.Errorf("negative duration %q", parsed.Format.Duration)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
