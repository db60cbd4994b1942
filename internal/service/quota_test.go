package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/notegenie/internal/domain"
)

var quotaNow = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

func newTestQuotaService(store UsageStore) QuotaService {
	return NewQuotaService(store, QuotaServiceConfig{
		Now: func() time.Time { return quotaNow },
	}, testLogger())
}

func TestCheckAndReserve_AfterResetYieldsAllowanceMinusOne(t *testing.T) {
	for _, tier := range []domain.Tier{domain.TierStarter, domain.TierPro, domain.TierElite} {
		t.Run(string(tier), func(t *testing.T) {
			store := newMemUsageStore()
			id := uuid.New()
			store.put(id, domain.Usage{Tier: tier, Count: -3, LastResetAt: quotaNow.Add(-25 * time.Hour)})

			res, err := newTestQuotaService(store).CheckAndReserve(context.Background(), id)
			require.NoError(t, err)

			assert.True(t, res.Reset)
			assert.Equal(t, tier.Allowance(), res.UsageCount)
			assert.Equal(t, tier.Allowance()-1, res.Remaining)
			assert.Equal(t, tier.Allowance()-1, store.get(id).Count)
			assert.Equal(t, quotaNow, store.get(id).LastResetAt)
		})
	}
}

func TestCheckAndReserve_NoResetInsideWindow(t *testing.T) {
	store := newMemUsageStore()
	id := uuid.New()
	last := quotaNow.Add(-24 * time.Hour)
	store.put(id, domain.Usage{Tier: domain.TierPro, Count: 5, LastResetAt: last})
	svc := newTestQuotaService(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CheckAndReserve(ctx, id)
		require.NoError(t, err)
		_, err = svc.Decrement(ctx, id)
		require.NoError(t, err)
	}

	got := store.get(id)
	assert.Equal(t, -1, got.Count)
	assert.Equal(t, last, got.LastResetAt)
}

func TestCheckAndReserve_FloorBoundary(t *testing.T) {
	tests := []struct {
		start   int
		wantErr bool
	}{
		{3, false},
		{0, false},
		{-1, false},
		{-2, false},
		{-3, true},
		{-5, true},
	}
	for _, tt := range tests {
		store := newMemUsageStore()
		id := uuid.New()
		store.put(id, domain.Usage{Tier: domain.TierStarter, Count: tt.start, LastResetAt: quotaNow})

		res, err := newTestQuotaService(store).CheckAndReserve(context.Background(), id)
		if tt.wantErr {
			var qe *domain.QuotaExhaustedError
			require.True(t, errors.As(err, &qe), "start %d", tt.start)
			assert.Equal(t, tt.start, qe.UsageCount)
			assert.Equal(t, tt.start, store.get(id).Count)
			continue
		}
		require.NoError(t, err, "start %d", tt.start)
		assert.Equal(t, tt.start, res.UsageCount)
		assert.Equal(t, tt.start-1, store.get(id).Count)
	}
}

func TestCheckAndReserve_StarterOverdraftScenario(t *testing.T) {
	store := newMemUsageStore()
	id := uuid.New()
	store.put(id, domain.Usage{Tier: domain.TierStarter, Count: 0, LastResetAt: quotaNow})
	svc := newTestQuotaService(store)
	ctx := context.Background()

	for _, want := range []int{-1, -2, -3} {
		res, err := svc.CheckAndReserve(ctx, id)
		require.NoError(t, err)
		assert.True(t, res.Overdraft)
		assert.Equal(t, want, store.get(id).Count)
	}

	_, err := svc.CheckAndReserve(ctx, id)
	var qe *domain.QuotaExhaustedError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, -3, qe.UsageCount)
	assert.Equal(t, domain.EQUOTA, domain.ErrorCode(err))
}

func TestCheckAndReserve_UnknownUser(t *testing.T) {
	_, err := newTestQuotaService(newMemUsageStore()).CheckAndReserve(context.Background(), uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestCheckAndReserve_StoreFailure(t *testing.T) {
	store := newMemUsageStore()
	store.err = errors.New("connection reset")

	_, err := newTestQuotaService(store).CheckAndReserve(context.Background(), uuid.New())
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}

func TestCheckAndReserve_ConcurrentCallersStopAtFloor(t *testing.T) {
	store := newMemUsageStore()
	id := uuid.New()
	store.put(id, domain.Usage{Tier: domain.TierStarter, Count: 3, LastResetAt: quotaNow})
	svc := newTestQuotaService(store)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CheckAndReserve(context.Background(), id); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, granted)
	assert.Equal(t, domain.UsageFloor, store.get(id).Count)
}

func TestDecrement(t *testing.T) {
	store := newMemUsageStore()
	id := uuid.New()
	store.put(id, domain.Usage{Tier: domain.TierStarter, Count: -3, LastResetAt: quotaNow.Add(-48 * time.Hour)})
	svc := newTestQuotaService(store)

	count, err := svc.Decrement(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, -4, count, "decrement neither resets nor respects the floor")

	_, err = svc.Decrement(context.Background(), uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestGetUsage_DoesNotPersistReset(t *testing.T) {
	store := newMemUsageStore()
	id := uuid.New()
	store.put(id, domain.Usage{Tier: domain.TierElite, Count: -1, LastResetAt: quotaNow.Add(-30 * time.Hour)})

	usage, err := newTestQuotaService(store).GetUsage(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, 20, usage.UsageCount)
	assert.Equal(t, -1, store.get(id).Count)
	assert.Zero(t, store.writes)
}

func TestReserveRun_OverdraftConsent(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		accept     bool
		wantCode   string
		wantCount  int
		wantWrites int
	}{
		{"inside allowance", 1, false, "", 0, 1},
		{"overdraft declined", 0, false, domain.EOVERDRAFT, 0, 0},
		{"overdraft accepted", 0, true, "", -1, 1},
		{"floor beats consent", domain.UsageFloor, false, domain.EQUOTA, domain.UsageFloor, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemUsageStore()
			id := uuid.New()
			store.put(id, domain.Usage{Tier: domain.TierStarter, Count: tt.count, LastResetAt: quotaNow.Add(-time.Hour)})

			res, err := newTestQuotaService(store).ReserveRun(context.Background(), id, tt.accept)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.count, res.UsageCount)
			}
			assert.Equal(t, tt.wantCount, store.get(id).Count)
			assert.Equal(t, tt.wantWrites, store.writes)
		})
	}
}

func TestReserveRun_ResetAppliesBeforeConsentCheck(t *testing.T) {
	store := newMemUsageStore()
	id := uuid.New()
	store.put(id, domain.Usage{Tier: domain.TierStarter, Count: -2, LastResetAt: quotaNow.Add(-25 * time.Hour)})

	res, err := newTestQuotaService(store).ReserveRun(context.Background(), id, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.UsageCount)
	assert.False(t, res.Overdraft)
	assert.Equal(t, 2, store.get(id).Count)
}

func TestQuotaService_DefaultMode(t *testing.T) {
	svc := NewQuotaService(newMemUsageStore(), QuotaServiceConfig{}, testLogger())
	assert.Equal(t, domain.DecrementReserveConfirm, svc.Mode())
}
