// Package service contains the business logic layer.
//
// This file runs AI processing of a stored recording and meters it against
// the usage ledger.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/DukeRupert/notegenie/internal/ai"
	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/metrics"
	"github.com/DukeRupert/notegenie/internal/repository"
)

// ProcessingService turns recordings into notes.
type ProcessingService interface {
	// Process reserves one use and sends the recording to the AI provider.
	// Returns domain.EOVERDRAFT when the run would be reduced accuracy and
	// the caller did not accept it, *domain.QuotaExhaustedError at the
	// floor and domain.EUNAVAILABLE when the provider failed.
	Process(ctx context.Context, params domain.ProcessParams) (*domain.Notes, error)

	// LatestNotes returns the newest notes saved for a video.
	LatestNotes(ctx context.Context, videoID, userID uuid.UUID) (*domain.Notes, error)
}

type processingService struct {
	queries  VideoQueries
	videos   VideoService
	quota    QuotaService
	provider ai.NotesProvider
	logger   *slog.Logger
}

// NewProcessingService creates a ProcessingService.
func NewProcessingService(
	queries VideoQueries,
	videos VideoService,
	quota QuotaService,
	provider ai.NotesProvider,
	logger *slog.Logger,
) ProcessingService {
	return &processingService{
		queries:  queries,
		videos:   videos,
		quota:    quota,
		provider: provider,
		logger:   logger,
	}
}

func (s *processingService) Process(ctx context.Context, params domain.ProcessParams) (*domain.Notes, error) {
	const op = "processing.process"

	video, err := s.videos.Get(ctx, params.VideoID, params.UserID)
	if err != nil {
		return nil, err
	}

	res, err := s.quota.ReserveRun(ctx, params.UserID, params.AcceptReducedAccuracy)
	if err != nil {
		return nil, err
	}

	if err := s.videos.SetStatus(ctx, video.ID, domain.VideoStatusProcessing); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.provider.ProcessVideo(ctx, ai.ProcessRequest{
		UserID:     params.UserID,
		VideoID:    video.ID,
		VideoURL:   video.URL,
		Tier:       res.Tier,
		UsageCount: res.UsageCount,
	})
	metrics.AICall(err, time.Since(start))
	if err != nil {
		s.markFailed(ctx, video.ID)
		s.logger.Error("AI processing failed",
			"video_id", video.ID,
			"user_id", params.UserID,
			"error", err,
		)
		if errors.Is(err, ai.ErrRejected) {
			return nil, domain.Wrap(err, domain.EINVALID, op, "The processing service rejected this video")
		}
		return nil, domain.Unavailable(err, op, "The processing service is unavailable. Please try again later.")
	}

	items, err := json.Marshal(result.ActionItems)
	if err != nil {
		s.markFailed(ctx, video.ID)
		return nil, domain.Internal(err, op, "failed to encode action items")
	}

	row, err := s.queries.CreateVideoNote(ctx, repository.CreateVideoNoteParams{
		VideoID:         video.ID,
		UserID:          params.UserID,
		Transcript:      result.Transcript,
		Notes:           result.Notes,
		ActionItems:     pqtype.NullRawMessage{RawMessage: items, Valid: result.ActionItems != nil},
		ReducedAccuracy: res.Overdraft,
	})
	if err != nil {
		s.markFailed(ctx, video.ID)
		return nil, domain.Internal(err, op, "failed to save notes")
	}

	if err := s.videos.SetStatus(ctx, video.ID, domain.VideoStatusProcessed); err != nil {
		s.logger.Warn("Could not mark video processed", "video_id", video.ID, "error", err)
	}

	if s.quota.Mode() == domain.DecrementReserveConfirm {
		if _, err := s.quota.Decrement(ctx, params.UserID); err != nil {
			s.logger.Error("Usage confirmation failed",
				"user_id", params.UserID,
				"video_id", video.ID,
				"error", err,
			)
		}
	}

	s.logger.Info("Video processed",
		"video_id", video.ID,
		"user_id", params.UserID,
		"tier", res.Tier,
		"reduced_accuracy", res.Overdraft,
	)
	return notesFromRow(row)
}

func (s *processingService) markFailed(ctx context.Context, videoID uuid.UUID) {
	if err := s.videos.SetStatus(ctx, videoID, domain.VideoStatusFailed); err != nil {
		s.logger.Warn("Could not mark video failed", "video_id", videoID, "error", err)
	}
}

func (s *processingService) LatestNotes(ctx context.Context, videoID, userID uuid.UUID) (*domain.Notes, error) {
	const op = "processing.latest"

	row, err := s.queries.GetLatestVideoNote(ctx, repository.GetLatestVideoNoteParams{
		VideoID: videoID,
		UserID:  userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "No notes for this video yet")
		}
		return nil, domain.Internal(err, op, "failed to fetch notes")
	}
	return notesFromRow(row)
}

func notesFromRow(row repository.VideoNote) (*domain.Notes, error) {
	n := &domain.Notes{
		ID:              row.ID,
		VideoID:         row.VideoID,
		UserID:          row.UserID,
		Transcript:      row.Transcript,
		Summary:         row.Notes,
		ReducedAccuracy: row.ReducedAccuracy,
		CreatedAt:       row.CreatedAt,
	}
	if row.ActionItems.Valid {
		if err := json.Unmarshal(row.ActionItems.RawMessage, &n.ActionItems); err != nil {
			return nil, domain.Internal(err, "processing.notes", "failed to decode action items")
		}
	}
	return n, nil
}
