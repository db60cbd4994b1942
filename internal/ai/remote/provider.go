// Package remote calls the processing service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DukeRupert/notegenie/internal/ai"
)

const (
	// ProcessPath is the endpoint of the processing service.
	ProcessPath = "/api/videoProcessing"

	// DefaultTimeout bounds one processing call.
	DefaultTimeout = 5 * time.Minute

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// Config contains configuration for the remote provider.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Client replaces the default HTTP client; tests inject one.
	Client *http.Client
}

// Provider implements ai.NotesProvider against the processing service.
// Calls are not retried; a failure is reported to the caller as is.
type Provider struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// New creates a remote provider.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote ai: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Provider{
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + ProcessPath,
		client:   client,
		logger:   logger,
	}, nil
}

// ProcessVideo posts the request and decodes the transcription result.
func (p *Provider) ProcessVideo(ctx context.Context, req ai.ProcessRequest) (*ai.ProcessResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, ai.WrapError("encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, ai.WrapError("build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Warn("AI service unreachable", "video_id", req.VideoID, "error", err)
		return nil, ai.WrapError("process video", fmt.Errorf("%w: %v", ai.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ai.WrapError("read response", fmt.Errorf("%w: %v", ai.ErrUnavailable, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ai.WrapError("process video", mapHTTPError(resp.StatusCode, raw))
	}

	var result ai.ProcessResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, ai.WrapError("decode response", fmt.Errorf("%w: %v", ai.ErrBadResponse, err))
	}

	p.logger.Info("AI processing completed",
		"video_id", req.VideoID,
		"user_id", req.UserID,
		"action_items", len(result.ActionItems),
		"duration", time.Since(start),
	)
	return &result, nil
}

// mapHTTPError turns a non-2xx status into one of the ai sentinels, keeping
// the service's message when it sent one.
func mapHTTPError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	if status >= 500 || status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d: %s", ai.ErrUnavailable, status, msg)
	}
	return fmt.Errorf("%w: status %d: %s", ai.ErrRejected, status, msg)
}
