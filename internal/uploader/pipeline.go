package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/DukeRupert/notegenie/internal/domain"
)

// Progress milestones reported by Run.
const (
	progressStart      = 0
	progressCompressed = 60
	progressDone       = 100
)

// Sender uploads a transcoded recording. *Client implements it.
type Sender interface {
	Upload(ctx context.Context, data []byte, filename, userID string, onProgress func(sent, total int64)) (*UploadRecord, error)
}

var _ Sender = (*Client)(nil)

// PipelineConfig wires a Pipeline. Profile defaults to
// domain.DefaultCompressionProfile when zero.
type PipelineConfig struct {
	Prober     Prober
	Transcoder Transcoder
	Sender     Sender
	Cache      *Cache
	Profile    domain.CompressionProfile
	Logger     *slog.Logger
}

// Pipeline runs validate, compress and upload strictly in sequence.
type Pipeline struct {
	prober     Prober
	transcoder Transcoder
	sender     Sender
	cache      *Cache
	profile    domain.CompressionProfile
	logger     *slog.Logger
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	profile := cfg.Profile
	if profile == (domain.CompressionProfile{}) {
		profile = domain.DefaultCompressionProfile()
	}
	return &Pipeline{
		prober:     cfg.Prober,
		transcoder: cfg.Transcoder,
		sender:     cfg.Sender,
		cache:      cfg.Cache,
		profile:    profile,
		logger:     cfg.Logger,
	}
}

// Run uploads the file at path for the session's user. onProgress may be
// nil. Any failure resets progress to 0; nothing is retried.
func (p *Pipeline) Run(ctx context.Context, session *Session, path string, onProgress func(percent int)) (*UploadRecord, error) {
	report := func(percent int) {
		session.setProgress(percent)
		if onProgress != nil {
			onProgress(percent)
		}
	}

	session.SetLatest(nil)
	rec, err := p.run(ctx, session.UserID(), path, report)
	if err != nil {
		report(progressStart)
		p.logger.Warn("upload pipeline failed", "path", path, "error", err)
		return nil, err
	}

	session.SetLatest(rec)
	if err := p.cache.Save(ctx, session.UserID(), *rec); err != nil {
		p.logger.Warn("failed to cache upload", "video_id", rec.ID, "error", err)
	}
	if session.Progress() != progressDone {
		report(progressDone)
	}

	p.logger.Info("upload stored", "video_id", rec.ID, "filename", rec.FileName)
	return rec, nil
}

func (p *Pipeline) run(ctx context.Context, userID, path string, report func(int)) (*UploadRecord, error) {
	if err := p.cache.Clear(ctx, userID); err != nil {
		p.logger.Warn("failed to clear cached upload", "error", err)
	}

	if err := ValidateFile(ctx, path, p.prober); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	report(progressStart)
	compressed, err := p.compress(ctx, raw)
	if err != nil {
		return nil, err
	}
	report(progressCompressed)

	p.logger.Debug("video compressed", "raw_bytes", len(raw), "compressed_bytes", len(compressed))

	last := progressCompressed
	onSent := func(sent, total int64) {
		if total <= 0 {
			return
		}
		percent := progressCompressed + int(sent*(progressDone-progressCompressed)/total)
		if percent > last {
			last = percent
			report(percent)
		}
	}

	return p.sender.Upload(ctx, compressed, p.uploadName(path), userID, onSent)
}

type compressResult struct {
	data []byte
	err  error
}

// compress runs the transcoder on its own goroutine and waits for it.
// Cancelling ctx stops the subprocess, which ends the goroutine.
func (p *Pipeline) compress(ctx context.Context, raw []byte) ([]byte, error) {
	done := make(chan compressResult, 1)
	go func() {
		data, err := p.transcoder.Compress(ctx, raw, p.profile)
		done <- compressResult{data: data, err: err}
	}()

	res := <-done
	if res.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompressionFailed, res.err)
	}
	return res.data, nil
}

func (p *Pipeline) uploadName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + containerOf(p.profile)
}
