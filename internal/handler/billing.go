package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/notegenie/internal/auth"
	"github.com/DukeRupert/notegenie/internal/billing"
	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/service"
)

// maxWebhookBody is the largest Stripe event payload read.
const maxWebhookBody = 64 << 10

// BillingHandler sells tier upgrades through Stripe.
//
// Routes:
//   - POST /api/billing/checkout (authenticated)
//   - POST /api/billing/portal   (authenticated)
//   - POST /api/billing/webhook  (public, signature verified)
type BillingHandler struct {
	billing billing.Service
	events  *billing.EventProcessor
	users   service.UserService
	baseURL string
	logger  *slog.Logger
}

// NewBillingHandler creates a new BillingHandler. billingService may be nil
// when Stripe is not configured; the routes then answer 503.
func NewBillingHandler(billingService billing.Service, events *billing.EventProcessor, users service.UserService, baseURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing: billingService,
		events:  events,
		users:   users,
		baseURL: baseURL,
		logger:  logger,
	}
}

// RegisterRoutes registers the billing routes on mux.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
	mux.Handle("POST /api/billing/portal", requireUser(http.HandlerFunc(h.OpenPortal)))
	mux.HandleFunc("POST /api/billing/webhook", h.Webhook)
}

func (h *BillingHandler) notConfigured(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, ErrorBody{
		Success: false,
		Message: "Billing is not configured",
		Code:    domain.EUNAVAILABLE,
	})
}

type checkoutRequest struct {
	Tier string `json:"tier" validate:"required"`
}

var checkoutMessages = fieldMessages{
	"tier.required": "Tier is required",
}

// CreateCheckout returns a Stripe Checkout URL for a paid tier.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "handler.checkout"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.billing == nil {
		h.notConfigured(w)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, op, &req, checkoutMessages); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	tier, ok := domain.ParseTier(req.Tier)
	if !ok || tier == domain.TierStarter {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "tier", "Tier must be Pro or Elite"))
		return
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		var err error
		customerID, err = h.billing.CreateCustomer(user.Email, user.DisplayName())
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Unavailable(err, op, "Failed to initialize billing"))
			return
		}
		if err := h.users.UpdateStripeCustomer(r.Context(), user.ID, customerID); err != nil {
			h.logger.Error("failed to save stripe customer ID", "error", err, "user_id", user.ID)
		}
	}

	successURL := fmt.Sprintf("%s/billing/success?session_id={CHECKOUT_SESSION_ID}", h.baseURL)
	cancelURL := fmt.Sprintf("%s/billing", h.baseURL)

	checkoutURL, err := h.billing.CreateCheckoutSession(customerID, tier, user.ID.String(), successURL, cancelURL)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Unavailable(err, op, "Failed to create checkout session"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"url":     checkoutURL,
	})
}

// OpenPortal returns a Stripe customer portal URL.
func (h *BillingHandler) OpenPortal(w http.ResponseWriter, r *http.Request) {
	const op = "handler.portal"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.billing == nil {
		h.notConfigured(w)
		return
	}
	if user.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.NotFound(op, "No billing account yet"))
		return
	}

	portalURL, err := h.billing.CreatePortalSession(user.StripeCustomerID, h.baseURL+"/billing")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Unavailable(err, op, "Failed to open billing portal"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"url":     portalURL,
	})
}

// Webhook verifies and applies a Stripe event. A failure to apply answers
// 500 so Stripe redelivers.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil || h.events == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := h.billing.VerifyWebhookSignature(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	if err := h.events.Apply(r.Context(), event); err != nil {
		h.logger.Error("failed to apply stripe event", "type", event.Type, "id", event.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
