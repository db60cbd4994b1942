// Package ai defines the contract with the external service that turns a
// stored recording into a transcript, notes and action items.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/DukeRupert/notegenie/internal/domain"
)

// NotesProvider processes one recording.
type NotesProvider interface {
	ProcessVideo(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
}

// ProcessRequest is the payload sent to the processing service. UsageCount
// is the balance seen before this run's reservation so the service can
// degrade accuracy in overdraft.
type ProcessRequest struct {
	UserID     uuid.UUID   `json:"userId"`
	VideoID    uuid.UUID   `json:"videoId"`
	VideoURL   string      `json:"videoUrl"`
	Tier       domain.Tier `json:"tier"`
	UsageCount int         `json:"usageCount"`
}

// ProcessResult is what the service returns.
type ProcessResult struct {
	Transcript  string              `json:"transcript"`
	Notes       string              `json:"notes"`
	ActionItems []domain.ActionItem `json:"actionItems"`
}

var (
	// ErrUnavailable means the service could not be reached or answered 5xx.
	ErrUnavailable = errors.New("ai service unavailable")

	// ErrRejected means the service refused the request (4xx).
	ErrRejected = errors.New("ai service rejected the request")

	// ErrBadResponse means the service answered with an unreadable body.
	ErrBadResponse = errors.New("ai service returned an invalid response")
)

// WrapError wraps an error with context about the AI operation.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
