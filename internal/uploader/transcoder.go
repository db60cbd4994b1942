package uploader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DukeRupert/notegenie/internal/domain"
)

// Transcoder re-encodes a recording to the given profile.
type Transcoder interface {
	Compress(ctx context.Context, raw []byte, profile domain.CompressionProfile) ([]byte, error)
}

// FFmpeg shells out to the ffmpeg binary at Path. Input and output go
// through a private temp directory that is removed afterwards.
type FFmpeg struct {
	Path string
}

var _ Transcoder = FFmpeg{}

// stderrTail bounds how much ffmpeg output ends up in an error.
const stderrTail = 2048

func (f FFmpeg) Compress(ctx context.Context, raw []byte, profile domain.CompressionProfile) ([]byte, error) {
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}

	dir, err := os.MkdirTemp("", "notegenie-transcode-*")
	if err != nil {
		return nil, fmt.Errorf("create transcode dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input")
	out := filepath.Join(dir, "output."+containerOf(profile))
	if err := os.WriteFile(in, raw, 0o600); err != nil {
		return nil, fmt.Errorf("write transcode input: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, ffmpegArgs(in, out, profile)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > stderrTail {
			msg = msg[len(msg)-stderrTail:]
		}
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read transcode output: %w", err)
	}
	return data, nil
}

func ffmpegArgs(in, out string, p domain.CompressionProfile) []string {
	args := []string{
		"-hide_banner", "-y",
		"-i", in,
		"-vf", fmt.Sprintf("scale=%d:%d", p.Width, p.Height),
		"-b:v", p.VideoBitrate,
		"-r", strconv.Itoa(p.FrameRate),
		"-ac", strconv.Itoa(p.AudioChannels),
		"-b:a", p.AudioBitrate,
	}
	switch containerOf(p) {
	case "mp4", "mov":
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, out)
}

func containerOf(p domain.CompressionProfile) string {
	if p.Container == "" {
		return "mp4"
	}
	return p.Container
}
