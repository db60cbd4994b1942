package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/notegenie/internal/auth"
	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/service"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 8 << 20

// multipartOverhead allows for form fields and the poster on top of the video.
const multipartOverhead = 10 << 20

// VideoHandler serves uploads, listings and AI processing.
//
// Routes (all authenticated):
//   - POST /api/upload
//   - GET  /api/videos
//   - POST /api/videos/{id}/process
//   - GET  /api/videos/{id}/notes
type VideoHandler struct {
	videos         service.VideoService
	processing     service.ProcessingService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(videos service.VideoService, processing service.ProcessingService, maxUploadBytes int64, logger *slog.Logger) *VideoHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = domain.MaxVideoBytes
	}
	return &VideoHandler{
		videos:         videos,
		processing:     processing,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers the video routes on mux.
func (h *VideoHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/upload", requireUser(http.HandlerFunc(h.Upload)))
	mux.Handle("GET /api/videos", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/videos/{id}/process", requireUser(http.HandlerFunc(h.Process)))
	mux.Handle("GET /api/videos/{id}/notes", requireUser(http.HandlerFunc(h.Notes)))
}

// =============================================================================
// POST /api/upload
// =============================================================================

// Upload stores a multipart video (field "video") for the signed-in user.
// The form must name the same user in "userId". An optional "poster" image
// becomes the listing thumbnail.
func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "handler.upload"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			ErrorResponse(w, r, h.logger, domain.TooLarge(op, "File is too large. Maximum size is 100MB."))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Failed to parse upload form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	if userID := r.FormValue("userId"); userID != "" && userID != user.ID.String() {
		ErrorResponse(w, r, h.logger, domain.NotFound(op, "User not found"))
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "No video file provided"))
		return
	}
	defer file.Close()

	params := domain.UploadVideoParams{
		UserID:      user.ID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}

	if poster, ok := h.optionalFile(r, "poster"); ok {
		defer poster.Close()
		params.Poster = poster
	}

	video, err := h.videos.Upload(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"video":   newVideoView(video),
	})
}

func (h *VideoHandler) optionalFile(r *http.Request, field string) (multipart.File, bool) {
	f, _, err := r.FormFile(field)
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			h.logger.Warn("failed to read optional form file", "field", field, "error", err)
		}
		return nil, false
	}
	return f, true
}

// =============================================================================
// GET /api/videos
// =============================================================================

// List returns the caller's videos, optionally limited by ?period=.
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handler.list_videos"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	period := domain.Period(r.URL.Query().Get("period"))
	if _, _, ok := period.Bounds(time.Now()); !ok {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "period must be one of today, yesterday, week"))
		return
	}

	videos, err := h.videos.List(r.Context(), user.ID, period)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	views := make([]videoView, 0, len(videos))
	for i := range videos {
		views = append(views, newVideoView(&videos[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"videos":  views,
	})
}

// =============================================================================
// POST /api/videos/{id}/process
// =============================================================================

type processRequest struct {
	AcceptReducedAccuracy bool `json:"acceptReducedAccuracy"`
}

// Process runs the AI collaborator on one of the caller's videos.
func (h *VideoHandler) Process(w http.ResponseWriter, r *http.Request) {
	const op = "handler.process_video"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	videoID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.NotFound(op, "Video not found"))
		return
	}

	var req processRequest
	if err := decodeJSON(r, op, &req, nil); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	notes, err := h.processing.Process(r.Context(), domain.ProcessParams{
		UserID:                user.ID,
		VideoID:               videoID,
		AcceptReducedAccuracy: req.AcceptReducedAccuracy,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"notes":   newNotesView(notes),
	})
}

// =============================================================================
// GET /api/videos/{id}/notes
// =============================================================================

// Notes returns the latest notes saved for a video.
func (h *VideoHandler) Notes(w http.ResponseWriter, r *http.Request) {
	const op = "handler.video_notes"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	videoID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.NotFound(op, "Video not found"))
		return
	}

	notes, err := h.processing.LatestNotes(r.Context(), videoID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"notes":   newNotesView(notes),
	})
}
