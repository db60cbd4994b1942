// Package service contains the business logic layer.
//
// This file implements storage and listing of uploaded recordings.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/metrics"
	"github.com/DukeRupert/notegenie/internal/repository"
	"github.com/DukeRupert/notegenie/internal/storage"
)

const (
	// VideoURLExpiry is how long a presigned video URL stays valid. It
	// outlives the client's 23h cache of the latest upload.
	VideoURLExpiry = 24 * time.Hour

	// maxListedVideos caps a single listing.
	maxListedVideos = 200
)

// VideoService stores and lists recordings.
type VideoService interface {
	// Upload validates and stores a recording and its optional poster.
	// Returns domain.ETOOLARGE or domain.EINVALID for rejected files.
	Upload(ctx context.Context, params domain.UploadVideoParams) (*domain.Video, error)

	// Get returns one of the user's videos with its URL resolved.
	// Returns domain.ENOTFOUND when the video is missing or not the user's.
	Get(ctx context.Context, videoID, userID uuid.UUID) (*domain.Video, error)

	// List returns the user's videos inside period, newest first.
	List(ctx context.Context, userID uuid.UUID, period domain.Period) ([]domain.Video, error)

	// SetStatus records processing progress.
	SetStatus(ctx context.Context, videoID uuid.UUID, status domain.VideoStatus) error
}

// VideoQueries is the subset of repository.Queries the video and
// processing services use.
type VideoQueries interface {
	CreateVideo(ctx context.Context, arg repository.CreateVideoParams) (repository.Video, error)
	GetVideoByIDAndUser(ctx context.Context, arg repository.GetVideoByIDAndUserParams) (repository.Video, error)
	ListVideosByUser(ctx context.Context, arg repository.ListVideosByUserParams) ([]repository.Video, error)
	UpdateVideoStatus(ctx context.Context, arg repository.UpdateVideoStatusParams) error
	CreateVideoNote(ctx context.Context, arg repository.CreateVideoNoteParams) (repository.VideoNote, error)
	GetLatestVideoNote(ctx context.Context, arg repository.GetLatestVideoNoteParams) (repository.VideoNote, error)
}

// VideoServiceConfig holds optional settings for the video service.
type VideoServiceConfig struct {
	// MaxUploadBytes defaults to domain.MaxVideoBytes.
	MaxUploadBytes int64
	Now            func() time.Time
}

type videoService struct {
	queries    VideoQueries
	storage    storage.Storage
	thumbnails ThumbnailProcessor
	maxBytes   int64
	now        func() time.Time
	logger     *slog.Logger
}

// NewVideoService creates a VideoService.
func NewVideoService(
	queries VideoQueries,
	store storage.Storage,
	thumbnails ThumbnailProcessor,
	cfg VideoServiceConfig,
	logger *slog.Logger,
) VideoService {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = domain.MaxVideoBytes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &videoService{
		queries:    queries,
		storage:    store,
		thumbnails: thumbnails,
		maxBytes:   cfg.MaxUploadBytes,
		now:        cfg.Now,
		logger:     logger,
	}
}

// Upload stores the recording, then the poster, then the database row. A
// failure at any step removes what was already written.
func (s *videoService) Upload(ctx context.Context, params domain.UploadVideoParams) (*domain.Video, error) {
	const op = "video.upload"

	filename := strings.TrimSpace(params.Filename)
	if filename == "" {
		filename = "recording"
	}

	if params.Size > s.maxBytes {
		metrics.UploadRejected()
		return nil, domain.TooLarge(op, "File is too large. Maximum size is 100MB.")
	}
	if params.Size == 0 {
		metrics.UploadRejected()
		return nil, domain.Invalid(op, "File is empty")
	}

	contentType := storage.DetectContentType(params.ContentType, filename)
	if !storage.IsAllowedVideoType(contentType) {
		metrics.UploadRejected()
		return nil, domain.Invalid(op, "Unsupported file type. Please upload a video.")
	}

	videoID := uuid.New()
	videoKey := storage.VideoKey(params.UserID, videoID, filename, contentType)

	info, err := s.storage.Put(ctx, videoKey, params.Body, storage.PutOptions{
		ContentType: contentType,
		Size:        params.Size,
		MaxSize:     s.maxBytes,
	})
	if err != nil {
		if storage.IsTooLarge(err) {
			metrics.UploadRejected()
			return nil, domain.TooLarge(op, "File is too large. Maximum size is 100MB.")
		}
		return nil, domain.Internal(err, op, "failed to store video")
	}
	size := info.Size
	if size == 0 {
		size = params.Size
	}

	var posterKey sql.NullString
	if params.Poster != nil {
		key, err := s.storePoster(ctx, params.UserID, videoID, params.Poster)
		if err != nil {
			// A broken poster does not fail the upload.
			s.logger.Warn("Poster rejected", "video_id", videoID, "error", err)
		} else {
			posterKey = sql.NullString{String: key, Valid: true}
		}
	}

	row, err := s.queries.CreateVideo(ctx, repository.CreateVideoParams{
		ID:          videoID,
		UserID:      params.UserID,
		Filename:    filename,
		StorageKey:  videoKey,
		PosterKey:   posterKey,
		ContentType: contentType,
		SizeBytes:   size,
		Status:      string(domain.VideoStatusCompleted),
	})
	if err != nil {
		_ = s.storage.Delete(ctx, videoKey)
		if posterKey.Valid {
			_ = s.storage.Delete(ctx, posterKey.String)
		}
		return nil, domain.Internal(err, op, "failed to create video record")
	}

	video := videoFromRow(row)
	if video.URL, err = s.storage.URL(ctx, video.StorageKey, VideoURLExpiry); err != nil {
		return nil, domain.Internal(err, op, "failed to resolve video URL")
	}

	metrics.UploadStored(size)
	s.logger.Info("Video stored",
		"video_id", video.ID,
		"user_id", video.UserID,
		"size", size,
		"content_type", contentType,
	)
	return video, nil
}

func (s *videoService) storePoster(ctx context.Context, userID, videoID uuid.UUID, poster io.Reader) (string, error) {
	jpeg, err := s.thumbnails.GenerateThumbnail(poster, PosterMaxWidth, PosterMaxHeight)
	if err != nil {
		return "", err
	}
	key := storage.PosterKey(userID, videoID)
	if _, err := s.storage.Put(ctx, key, bytes.NewReader(jpeg), storage.PutOptions{
		ContentType: "image/jpeg",
		Size:        int64(len(jpeg)),
	}); err != nil {
		return "", err
	}
	return key, nil
}

func (s *videoService) Get(ctx context.Context, videoID, userID uuid.UUID) (*domain.Video, error) {
	const op = "video.get"

	row, err := s.queries.GetVideoByIDAndUser(ctx, repository.GetVideoByIDAndUserParams{ID: videoID, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "Video not found")
		}
		return nil, domain.Internal(err, op, "failed to fetch video")
	}

	video := videoFromRow(row)
	if video.URL, err = s.storage.URL(ctx, video.StorageKey, VideoURLExpiry); err != nil {
		return nil, domain.Internal(err, op, "failed to resolve video URL")
	}
	return video, nil
}

func (s *videoService) List(ctx context.Context, userID uuid.UUID, period domain.Period) ([]domain.Video, error) {
	const op = "video.list"

	from, to, ok := period.Bounds(s.now())
	if !ok {
		return nil, domain.Invalid(op, "Invalid period. Use today, yesterday or week.")
	}

	rows, err := s.queries.ListVideosByUser(ctx, repository.ListVideosByUserParams{
		UserID: userID,
		From:   sql.NullTime{Time: from, Valid: !from.IsZero()},
		To:     sql.NullTime{Time: to, Valid: !to.IsZero()},
		Limit:  maxListedVideos,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list videos")
	}

	videos := make([]domain.Video, 0, len(rows))
	for _, row := range rows {
		v := videoFromRow(row)
		if v.URL, err = s.storage.URL(ctx, v.StorageKey, VideoURLExpiry); err != nil {
			s.logger.Warn("Could not resolve video URL", "video_id", v.ID, "error", err)
		}
		videos = append(videos, *v)
	}
	return videos, nil
}

func (s *videoService) SetStatus(ctx context.Context, videoID uuid.UUID, status domain.VideoStatus) error {
	const op = "video.status"

	if err := s.queries.UpdateVideoStatus(ctx, repository.UpdateVideoStatusParams{
		ID:     videoID,
		Status: string(status),
	}); err != nil {
		return domain.Internal(err, op, "failed to update video status")
	}
	return nil
}

func videoFromRow(v repository.Video) *domain.Video {
	return &domain.Video{
		ID:          v.ID,
		UserID:      v.UserID,
		Filename:    v.Filename,
		StorageKey:  v.StorageKey,
		PosterKey:   v.PosterKey.String,
		ContentType: v.ContentType,
		SizeBytes:   v.SizeBytes,
		Status:      domain.VideoStatus(v.Status),
		UploadedAt:  v.UploadedAt,
	}
}
