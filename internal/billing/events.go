package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/DukeRupert/notegenie/internal/domain"
)

// Accounts is the part of the user service webhook processing needs.
type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error
	UpdateTier(ctx context.Context, userID uuid.UUID, tier domain.Tier) error
}

// EventProcessor applies verified Stripe events to accounts. A tier change
// only alters the allowance the next daily reset refills to.
type EventProcessor struct {
	accounts     Accounts
	tierForPrice func(priceID string) domain.Tier
	logger       *slog.Logger
}

// NewEventProcessor creates an EventProcessor. tierForPrice usually is
// Service.TierForPriceID.
func NewEventProcessor(accounts Accounts, tierForPrice func(priceID string) domain.Tier, logger *slog.Logger) *EventProcessor {
	return &EventProcessor{accounts: accounts, tierForPrice: tierForPrice, logger: logger}
}

// Apply handles one event. Unknown event types and events for unknown
// customers are ignored.
func (p *EventProcessor) Apply(ctx context.Context, event stripe.Event) error {
	if event.Data == nil {
		return fmt.Errorf("stripe event %s has no data", event.ID)
	}

	switch event.Type {
	case "checkout.session.completed":
		return p.checkoutCompleted(ctx, event.Data.Raw)
	case "customer.subscription.created", "customer.subscription.updated":
		return p.subscriptionChanged(ctx, event.Data.Raw)
	case "customer.subscription.deleted":
		return p.subscriptionDeleted(ctx, event.Data.Raw)
	default:
		p.logger.Debug("unhandled webhook event type", "type", event.Type)
		return nil
	}
}

func (p *EventProcessor) checkoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("parse checkout session: %w", err)
	}

	user, err := p.userForCheckout(ctx, session)
	if err != nil || user == nil {
		return err
	}

	if session.Customer != nil && user.StripeCustomerID != session.Customer.ID {
		if err := p.accounts.UpdateStripeCustomer(ctx, user.ID, session.Customer.ID); err != nil {
			return err
		}
	}

	tier := domain.Tier(session.Metadata[metadataTier])
	if !tier.Valid() {
		p.logger.Warn("checkout session without tier metadata", "session_id", session.ID, "user_id", user.ID)
		return nil
	}
	return p.setTier(ctx, user, tier, "checkout")
}

func (p *EventProcessor) userForCheckout(ctx context.Context, session stripe.CheckoutSession) (*domain.User, error) {
	if session.Customer != nil {
		user, err := p.accounts.GetByStripeCustomerID(ctx, session.Customer.ID)
		if err == nil {
			return user, nil
		}
		if domain.ErrorCode(err) != domain.ENOTFOUND {
			return nil, err
		}
	}

	if id, err := uuid.Parse(session.ClientReferenceID); err == nil {
		user, err := p.accounts.GetByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if domain.ErrorCode(err) != domain.ENOTFOUND {
			return nil, err
		}
	}

	p.logger.Warn("checkout session for unknown account", "session_id", session.ID)
	return nil, nil
}

func (p *EventProcessor) subscriptionChanged(ctx context.Context, raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("parse subscription: %w", err)
	}

	user, err := p.userForCustomer(ctx, sub.Customer, sub.ID)
	if err != nil || user == nil {
		return err
	}

	tier := domain.TierStarter
	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing, stripe.SubscriptionStatusPastDue:
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			if t := p.tierForPrice(sub.Items.Data[0].Price.ID); t.Valid() {
				tier = t
			}
		}
	}
	return p.setTier(ctx, user, tier, "subscription "+string(sub.Status))
}

func (p *EventProcessor) subscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("parse subscription: %w", err)
	}

	user, err := p.userForCustomer(ctx, sub.Customer, sub.ID)
	if err != nil || user == nil {
		return err
	}
	return p.setTier(ctx, user, domain.TierStarter, "subscription deleted")
}

func (p *EventProcessor) userForCustomer(ctx context.Context, c *stripe.Customer, subscriptionID string) (*domain.User, error) {
	if c == nil {
		p.logger.Warn("subscription event missing customer", "subscription_id", subscriptionID)
		return nil, nil
	}
	user, err := p.accounts.GetByStripeCustomerID(ctx, c.ID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			p.logger.Warn("user not found for subscription event", "customer_id", c.ID, "subscription_id", subscriptionID)
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (p *EventProcessor) setTier(ctx context.Context, user *domain.User, tier domain.Tier, reason string) error {
	if user.Tier == tier {
		return nil
	}
	if err := p.accounts.UpdateTier(ctx, user.ID, tier); err != nil {
		return err
	}
	p.logger.Info("tier updated from billing", "user_id", user.ID, "from", user.Tier, "to", tier, "reason", reason)
	return nil
}
