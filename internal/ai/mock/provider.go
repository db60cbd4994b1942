// Package mock provides an in-process NotesProvider for development and tests.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/DukeRupert/notegenie/internal/ai"
	"github.com/DukeRupert/notegenie/internal/domain"
)

// Provider returns canned results.
type Provider struct {
	logger *slog.Logger

	mu sync.Mutex

	// Configurable responses for testing
	Response *ai.ProcessResult
	Error    error

	// Call tracking for testing
	Calls    int
	Requests []ai.ProcessRequest
}

// New creates a new mock provider.
func New(logger *slog.Logger) *Provider {
	return &Provider{logger: logger}
}

// ProcessVideo records the request and returns Response, Error or a default
// result.
func (p *Provider) ProcessVideo(ctx context.Context, req ai.ProcessRequest) (*ai.ProcessResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls++
	p.Requests = append(p.Requests, req)

	if p.Error != nil {
		return nil, p.Error
	}
	if p.Response != nil {
		return p.Response, nil
	}

	p.logger.Debug("mock AI processing", "video_id", req.VideoID, "usage_count", req.UsageCount)

	accuracy := "full"
	if domain.IsOverdraft(req.UsageCount) {
		accuracy = "reduced"
	}
	return &ai.ProcessResult{
		Transcript: "Alex: Let's review the launch checklist.\nSam: QA signs off Thursday.",
		Notes:      fmt.Sprintf("Launch checklist reviewed (%s accuracy). QA sign-off planned for Thursday.", accuracy),
		ActionItems: []domain.ActionItem{
			{Task: "Finish QA pass", AssignedTo: "Sam", DueDate: "Thursday", Status: "pending"},
			{Task: "Draft release notes", AssignedTo: "Alex", DueDate: "Friday", Status: "pending"},
		},
	}, nil
}

// CallCount returns the number of ProcessVideo calls so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Calls
}
