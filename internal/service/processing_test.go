package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/notegenie/internal/ai"
	"github.com/DukeRupert/notegenie/internal/ai/mock"
	"github.com/DukeRupert/notegenie/internal/domain"
)

type processingFixture struct {
	svc      ProcessingService
	usage    *memUsageStore
	quota    QuotaService
	videos   *videoFixture
	provider *mock.Provider
	userID   uuid.UUID
	videoID  uuid.UUID
}

func newProcessingFixture(t *testing.T, count int, mode domain.DecrementMode) *processingFixture {
	t.Helper()
	vf := newVideoFixture(t, 0)
	userID := uuid.New()
	video, err := vf.svc.Upload(context.Background(), uploadParams(userID, "frames"))
	require.NoError(t, err)

	usage := newMemUsageStore()
	usage.put(userID, domain.Usage{Tier: domain.TierStarter, Count: count, LastResetAt: quotaNow.Add(-time.Hour)})
	quota := NewQuotaService(usage, QuotaServiceConfig{
		Mode: mode,
		Now:  func() time.Time { return quotaNow },
	}, testLogger())

	provider := mock.New(testLogger())
	return &processingFixture{
		svc:      NewProcessingService(vf.queries, vf.svc, quota, provider, testLogger()),
		usage:    usage,
		quota:    quota,
		videos:   vf,
		provider: provider,
		userID:   userID,
		videoID:  video.ID,
	}
}

func TestProcess_ConfirmModeChargesTwice(t *testing.T) {
	f := newProcessingFixture(t, 3, domain.DecrementReserveConfirm)

	notes, err := f.svc.Process(context.Background(), domain.ProcessParams{UserID: f.userID, VideoID: f.videoID})
	require.NoError(t, err)

	assert.False(t, notes.ReducedAccuracy)
	assert.Len(t, notes.ActionItems, 2)
	assert.Equal(t, 1, f.usage.get(f.userID).Count)

	require.Len(t, f.provider.Requests, 1)
	req := f.provider.Requests[0]
	assert.Equal(t, 3, req.UsageCount)
	assert.Equal(t, domain.TierStarter, req.Tier)
	assert.Contains(t, req.VideoURL, "http://localhost:8080/files/")

	assert.Equal(t,
		[]domain.VideoStatus{domain.VideoStatusProcessing, domain.VideoStatusProcessed},
		f.videos.queries.statuses)
}

func TestProcess_SingleModeChargesOnce(t *testing.T) {
	f := newProcessingFixture(t, 3, domain.DecrementSingle)

	_, err := f.svc.Process(context.Background(), domain.ProcessParams{UserID: f.userID, VideoID: f.videoID})
	require.NoError(t, err)
	assert.Equal(t, 2, f.usage.get(f.userID).Count)
}

func TestProcess_OverdraftNeedsConsent(t *testing.T) {
	f := newProcessingFixture(t, 0, domain.DecrementReserveConfirm)
	ctx := context.Background()

	_, err := f.svc.Process(ctx, domain.ProcessParams{UserID: f.userID, VideoID: f.videoID})
	require.Error(t, err)
	assert.Equal(t, domain.EOVERDRAFT, domain.ErrorCode(err))
	assert.Equal(t, 0, f.usage.get(f.userID).Count)
	assert.Equal(t, 0, f.provider.CallCount())

	notes, err := f.svc.Process(ctx, domain.ProcessParams{
		UserID:                f.userID,
		VideoID:               f.videoID,
		AcceptReducedAccuracy: true,
	})
	require.NoError(t, err)
	assert.True(t, notes.ReducedAccuracy)
	assert.Equal(t, 0, f.provider.Requests[0].UsageCount)
	assert.Equal(t, -2, f.usage.get(f.userID).Count)
}

// racingQuota lets another run reserve just before the wrapped call.
type racingQuota struct {
	QuotaService
	t *testing.T
}

func (q racingQuota) ReserveRun(ctx context.Context, userID uuid.UUID, acceptOverdraft bool) (*domain.Reservation, error) {
	_, err := q.QuotaService.CheckAndReserve(ctx, userID)
	require.NoError(q.t, err)
	return q.QuotaService.ReserveRun(ctx, userID, acceptOverdraft)
}

func TestProcess_BalanceDropsIntoOverdraftBeforeReservation(t *testing.T) {
	f := newProcessingFixture(t, 1, domain.DecrementReserveConfirm)
	svc := NewProcessingService(f.videos.queries, f.videos.svc, racingQuota{QuotaService: f.quota, t: t}, f.provider, testLogger())

	_, err := svc.Process(context.Background(), domain.ProcessParams{UserID: f.userID, VideoID: f.videoID})
	require.Error(t, err)
	assert.Equal(t, domain.EOVERDRAFT, domain.ErrorCode(err))
	assert.Equal(t, 0, f.usage.get(f.userID).Count, "only the competing run is charged")
	assert.Equal(t, 0, f.provider.CallCount())
	assert.Empty(t, f.videos.queries.statuses)
}

func TestProcess_AtFloor(t *testing.T) {
	f := newProcessingFixture(t, domain.UsageFloor, domain.DecrementReserveConfirm)

	_, err := f.svc.Process(context.Background(), domain.ProcessParams{
		UserID:                f.userID,
		VideoID:               f.videoID,
		AcceptReducedAccuracy: true,
	})
	require.Error(t, err)
	assert.Equal(t, domain.EQUOTA, domain.ErrorCode(err))
	assert.Equal(t, "Daily usage limit reached. Please upgrade your tier.", domain.ErrorMessage(err))
	assert.Equal(t, 0, f.provider.CallCount())
}

func TestProcess_ProviderFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"unavailable", ai.WrapError("process", fmt.Errorf("%w: status 503", ai.ErrUnavailable)), domain.EUNAVAILABLE},
		{"rejected", ai.WrapError("process", fmt.Errorf("%w: status 422", ai.ErrRejected)), domain.EINVALID},
		{"bad response", ai.WrapError("process", ai.ErrBadResponse), domain.EUNAVAILABLE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessingFixture(t, 3, domain.DecrementReserveConfirm)
			f.provider.Error = tt.err

			_, err := f.svc.Process(context.Background(), domain.ProcessParams{UserID: f.userID, VideoID: f.videoID})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))

			// The reservation stands; only the confirmation is skipped.
			assert.Equal(t, 2, f.usage.get(f.userID).Count)
			assert.Equal(t, string(domain.VideoStatusFailed), f.videos.queries.video(f.videoID).Status)
		})
	}
}

func TestProcess_UnknownVideo(t *testing.T) {
	f := newProcessingFixture(t, 3, domain.DecrementReserveConfirm)

	_, err := f.svc.Process(context.Background(), domain.ProcessParams{UserID: f.userID, VideoID: uuid.New()})
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	assert.Equal(t, 3, f.usage.get(f.userID).Count)
}

func TestProcess_SaveFailureMarksVideoFailed(t *testing.T) {
	f := newProcessingFixture(t, 3, domain.DecrementReserveConfirm)
	f.videos.queries.noteErr = errors.New("disk full")

	_, err := f.svc.Process(context.Background(), domain.ProcessParams{UserID: f.userID, VideoID: f.videoID})
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Equal(t, string(domain.VideoStatusFailed), f.videos.queries.video(f.videoID).Status)
}

func TestLatestNotes(t *testing.T) {
	f := newProcessingFixture(t, 3, domain.DecrementReserveConfirm)
	ctx := context.Background()

	_, err := f.svc.LatestNotes(ctx, f.videoID, f.userID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	f.provider.Response = &ai.ProcessResult{
		Transcript:  "Sam: shipping Friday",
		Notes:       "Ship date confirmed",
		ActionItems: []domain.ActionItem{{Task: "Tag release", AssignedTo: "Sam"}},
	}
	_, err = f.svc.Process(ctx, domain.ProcessParams{UserID: f.userID, VideoID: f.videoID})
	require.NoError(t, err)

	notes, err := f.svc.LatestNotes(ctx, f.videoID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "Ship date confirmed", notes.Summary)
	assert.Equal(t, []domain.ActionItem{{Task: "Tag release", AssignedTo: "Sam"}}, notes.ActionItems)

	_, err = f.svc.LatestNotes(ctx, f.videoID, uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
