package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/DukeRupert/notegenie/internal/auth"
	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/service"
)

// QuotaHandler exposes the daily usage ledger.
//
// Routes (all authenticated):
//   - POST /api/maintain_usage_count
//   - POST /api/decrement_usage_count
//   - GET  /api/usage
type QuotaHandler struct {
	quota  service.QuotaService
	logger *slog.Logger
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(quota service.QuotaService, logger *slog.Logger) *QuotaHandler {
	return &QuotaHandler{
		quota:  quota,
		logger: logger,
	}
}

// RegisterRoutes registers the quota routes on mux.
func (h *QuotaHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/maintain_usage_count", requireUser(http.HandlerFunc(h.MaintainUsageCount)))
	mux.Handle("POST /api/decrement_usage_count", requireUser(http.HandlerFunc(h.DecrementUsageCount)))
	mux.Handle("GET /api/usage", requireUser(http.HandlerFunc(h.Usage)))
}

type userIDRequest struct {
	UserID string `json:"userId" validate:"required"`
}

var userIDMessages = fieldMessages{
	"userId.required": "User ID is required",
}

// targetUser reads {userId} and resolves it against the signed-in account.
// Another account's ID answers as unknown.
func (h *QuotaHandler) targetUser(r *http.Request, op string) (uuid.UUID, error) {
	var req userIDRequest
	if err := decodeJSON(r, op, &req, userIDMessages); err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(req.UserID)
	if err != nil {
		return uuid.Nil, domain.NotFound(op, "User not found")
	}
	caller := auth.GetUser(r.Context())
	if caller == nil || caller.ID != id {
		return uuid.Nil, domain.NotFound(op, "User not found")
	}
	return id, nil
}

// MaintainUsageCount reserves one run. The returned usage_count is the
// balance before this reservation.
func (h *QuotaHandler) MaintainUsageCount(w http.ResponseWriter, r *http.Request) {
	const op = "handler.maintain_usage_count"

	userID, err := h.targetUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	res, err := h.quota.CheckAndReserve(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"usage_count": res.UsageCount,
		"message":     "Video analysis started",
		"overdraft":   res.Overdraft,
	})
}

// DecrementUsageCount deducts one use without checking the floor.
func (h *QuotaHandler) DecrementUsageCount(w http.ResponseWriter, r *http.Request) {
	const op = "handler.decrement_usage_count"

	userID, err := h.targetUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	count, err := h.quota.Decrement(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"usage_count": count,
		"message":     "Usage count decremented",
	})
}

// Usage reports the caller's ledger without consuming anything.
func (h *QuotaHandler) Usage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	usage, err := h.quota.GetUsage(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"usage":   usage,
	})
}
