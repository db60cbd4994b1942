// Package service contains the business logic layer.
//
// This file implements the daily usage ledger that gates AI processing runs.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/metrics"
)

// QuotaService meters AI processing runs against each account's daily
// allowance.
type QuotaService interface {
	// CheckAndReserve refills the allowance when the reset window elapsed,
	// then consumes one use unless the balance is at the floor.
	// Returns domain.ENOTFOUND for unknown accounts and
	// *domain.QuotaExhaustedError at the floor.
	CheckAndReserve(ctx context.Context, userID uuid.UUID) (*domain.Reservation, error)

	// ReserveRun is CheckAndReserve for an AI run. When the reservation
	// would go into overdraft and acceptOverdraft is false nothing is
	// consumed and domain.EOVERDRAFT is returned. The decision is made
	// under the same lock as the decrement.
	ReserveRun(ctx context.Context, userID uuid.UUID, acceptOverdraft bool) (*domain.Reservation, error)

	// Decrement subtracts one use unconditionally and returns the new balance.
	Decrement(ctx context.Context, userID uuid.UUID) (int, error)

	// GetUsage returns the ledger as it would look now without writing.
	GetUsage(ctx context.Context, userID uuid.UUID) (*domain.QuotaUsage, error)

	// Mode reports whether successful runs are charged once or twice.
	Mode() domain.DecrementMode
}

// UsageStore persists the usage ledger. Missing accounts surface as
// sql.ErrNoRows.
type UsageStore interface {
	// UpdateUsage loads the ledger under a row lock, hands it to fn and
	// writes it back when fn returns true.
	UpdateUsage(ctx context.Context, userID uuid.UUID, fn func(*domain.Usage) bool) (domain.Usage, error)
	LoadUsage(ctx context.Context, userID uuid.UUID) (domain.Usage, error)
	DecrementUsage(ctx context.Context, userID uuid.UUID) (int, error)
}

// QuotaServiceConfig holds optional settings for the quota service.
type QuotaServiceConfig struct {
	Mode domain.DecrementMode
	// Now overrides the clock; tests pin it.
	Now func() time.Time
}

type quotaService struct {
	store  UsageStore
	mode   domain.DecrementMode
	now    func() time.Time
	logger *slog.Logger
}

// NewQuotaService creates a QuotaService.
func NewQuotaService(store UsageStore, cfg QuotaServiceConfig, logger *slog.Logger) QuotaService {
	if cfg.Mode == "" {
		cfg.Mode = domain.DecrementReserveConfirm
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &quotaService{
		store:  store,
		mode:   cfg.Mode,
		now:    cfg.Now,
		logger: logger,
	}
}

func (s *quotaService) Mode() domain.DecrementMode {
	return s.mode
}

func (s *quotaService) CheckAndReserve(ctx context.Context, userID uuid.UUID) (*domain.Reservation, error) {
	return s.reserve(ctx, "quota.reserve", userID, true)
}

func (s *quotaService) ReserveRun(ctx context.Context, userID uuid.UUID, acceptOverdraft bool) (*domain.Reservation, error) {
	return s.reserve(ctx, "quota.reserve_run", userID, acceptOverdraft)
}

func (s *quotaService) reserve(ctx context.Context, op string, userID uuid.UUID, acceptOverdraft bool) (*domain.Reservation, error) {
	now := s.now()
	var (
		reset    bool
		previous int
		allowed  bool
		declined bool
	)

	usage, err := s.store.UpdateUsage(ctx, userID, func(u *domain.Usage) bool {
		reset = u.ApplyReset(now)
		if !acceptOverdraft && u.Count > domain.UsageFloor && domain.IsOverdraft(u.Count) {
			declined = true
			return reset
		}
		previous, allowed = u.Reserve()
		return reset || allowed
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "failed to update usage")
	}

	if reset {
		metrics.QuotaReset(string(usage.Tier))
		s.logger.Info("Usage allowance reset",
			"user_id", userID,
			"tier", usage.Tier,
			"allowance", usage.Tier.Allowance(),
		)
	}

	if declined {
		s.logger.Info("Overdraft run declined without consent",
			"user_id", userID,
			"tier", usage.Tier,
			"usage_count", usage.Count,
		)
		return nil, domain.Errorf(domain.EOVERDRAFT, op,
			"Your daily allowance is used up. Processing now runs with reduced accuracy.")
	}

	if !allowed {
		metrics.QuotaChecked(metrics.QuotaExhausted)
		s.logger.Info("Usage floor reached",
			"user_id", userID,
			"tier", usage.Tier,
			"usage_count", usage.Count,
		)
		return nil, domain.QuotaExhausted(op, usage.Count)
	}

	res := &domain.Reservation{
		UsageCount: previous,
		Remaining:  usage.Count,
		Tier:       usage.Tier,
		Overdraft:  domain.IsOverdraft(previous),
		Reset:      reset,
	}
	if res.Overdraft {
		metrics.QuotaChecked(metrics.QuotaOverdraft)
	} else {
		metrics.QuotaChecked(metrics.QuotaAllowed)
	}

	s.logger.Debug("Usage reserved",
		"user_id", userID,
		"tier", res.Tier,
		"usage_count", res.UsageCount,
		"remaining", res.Remaining,
		"overdraft", res.Overdraft,
	)
	return res, nil
}

func (s *quotaService) Decrement(ctx context.Context, userID uuid.UUID) (int, error) {
	const op = "quota.decrement"

	count, err := s.store.DecrementUsage(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NotFound(op, "User not found")
		}
		return 0, domain.Internal(err, op, "failed to decrement usage")
	}

	metrics.UsageDecrementsTotal.Inc()
	s.logger.Debug("Usage decremented", "user_id", userID, "usage_count", count)
	return count, nil
}

func (s *quotaService) GetUsage(ctx context.Context, userID uuid.UUID) (*domain.QuotaUsage, error) {
	const op = "quota.usage"

	usage, err := s.store.LoadUsage(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "failed to load usage")
	}

	view := usage.View(s.now())
	return &view, nil
}
