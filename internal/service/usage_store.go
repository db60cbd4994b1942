package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/repository"
)

// pgUsageStore keeps the ledger in the users table.
type pgUsageStore struct {
	db      *sql.DB
	queries *repository.Queries
}

// NewUsageStore returns a UsageStore backed by Postgres.
func NewUsageStore(db *sql.DB, queries *repository.Queries) UsageStore {
	return &pgUsageStore{db: db, queries: queries}
}

func (s *pgUsageStore) UpdateUsage(ctx context.Context, userID uuid.UUID, fn func(*domain.Usage) bool) (domain.Usage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Usage{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	user, err := qtx.GetUserByIDForUpdate(ctx, userID)
	if err != nil {
		return domain.Usage{}, err
	}

	usage := usageFromRow(user)
	if !fn(&usage) {
		return usage, tx.Commit()
	}

	if err := qtx.UpdateUserUsage(ctx, repository.UpdateUserUsageParams{
		ID:          userID,
		UsageCount:  int32(usage.Count),
		LastResetAt: usage.LastResetAt,
	}); err != nil {
		return domain.Usage{}, fmt.Errorf("write usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Usage{}, fmt.Errorf("commit usage: %w", err)
	}
	return usage, nil
}

func (s *pgUsageStore) LoadUsage(ctx context.Context, userID uuid.UUID) (domain.Usage, error) {
	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return domain.Usage{}, err
	}
	return usageFromRow(user), nil
}

func (s *pgUsageStore) DecrementUsage(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.queries.DecrementUserUsage(ctx, userID)
	return int(count), err
}

func usageFromRow(u repository.User) domain.Usage {
	return domain.Usage{
		Tier:        domain.Tier(u.Tier),
		Count:       int(u.UsageCount),
		LastResetAt: u.LastResetAt.In(time.UTC),
	}
}
