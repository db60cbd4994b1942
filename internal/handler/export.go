package handler

import (
	"bytes"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/notegenie/internal/auth"
	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/report"
	"github.com/DukeRupert/notegenie/internal/service"
)

// ExportHandler serves downloadable renderings of meeting notes.
//
// Routes (authenticated):
//   - GET /api/videos/{id}/notes/pdf
type ExportHandler struct {
	videos     service.VideoService
	processing service.ProcessingService
	generator  report.Generator
	now        func() time.Time
	logger     *slog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(videos service.VideoService, processing service.ProcessingService, generator report.Generator, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		videos:     videos,
		processing: processing,
		generator:  generator,
		now:        time.Now,
		logger:     logger,
	}
}

// RegisterRoutes registers export routes on the mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/videos/{id}/notes/pdf", requireUser(http.HandlerFunc(h.NotesPDF)))
}

// NotesPDF renders the latest notes for a video as a PDF attachment.
func (h *ExportHandler) NotesPDF(w http.ResponseWriter, r *http.Request) {
	const op = "handler.export_notes_pdf"

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

	video, err := h.videos.Get(r.Context(), videoID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	notes, err := h.processing.LatestNotes(r.Context(), videoID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var buf bytes.Buffer
	doc := report.NewNotesDocument(video, notes, h.now())
	if _, err := h.generator.Generate(r.Context(), doc, &buf); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to render notes"))
		return
	}

	w.Header().Set("Content-Type", h.generator.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": exportName(video.Filename, ".pdf"),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// exportName swaps the extension of the uploaded filename.
func exportName(filename, ext string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == "/" {
		base = "notes"
	}
	return base + "-notes" + ext
}
