package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/DukeRupert/notegenie/internal/auth"
	"github.com/DukeRupert/notegenie/internal/domain"
)

// =============================================================================
// Mock services
// =============================================================================

type mockUserService struct {
	SignUpFunc                func(ctx context.Context, params domain.SignUpParams) (*domain.User, error)
	VerifyCodeFunc            func(ctx context.Context, username, code string) (*domain.User, error)
	LoginFunc                 func(ctx context.Context, identifier, password string) (*domain.LoginResult, error)
	LogoutFunc                func(ctx context.Context, token string) error
	UpdateStripeCustomerFunc  func(ctx context.Context, userID uuid.UUID, customerID string) error
	GetBySessionTokenFunc     func(ctx context.Context, token string) (*domain.User, error)
	GetByStripeCustomerIDFunc func(ctx context.Context, customerID string) (*domain.User, error)
}

func (m *mockUserService) SignUp(ctx context.Context, params domain.SignUpParams) (*domain.User, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, params)
	}
	return nil, errors.New("SignUpFunc not implemented")
}

func (m *mockUserService) VerifyCode(ctx context.Context, username, code string) (*domain.User, error) {
	if m.VerifyCodeFunc != nil {
		return m.VerifyCodeFunc(ctx, username, code)
	}
	return nil, errors.New("VerifyCodeFunc not implemented")
}

func (m *mockUserService) Login(ctx context.Context, identifier, password string) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, identifier, password)
	}
	return nil, errors.New("LoginFunc not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	if m.GetByStripeCustomerIDFunc != nil {
		return m.GetByStripeCustomerIDFunc(ctx, customerID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	if m.UpdateStripeCustomerFunc != nil {
		return m.UpdateStripeCustomerFunc(ctx, userID, customerID)
	}
	return nil
}

func (m *mockUserService) UpdateTier(ctx context.Context, userID uuid.UUID, tier domain.Tier) error {
	return errors.New("not implemented")
}

func (m *mockUserService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

type mockQuotaService struct {
	CheckAndReserveFunc func(ctx context.Context, userID uuid.UUID) (*domain.Reservation, error)
	DecrementFunc       func(ctx context.Context, userID uuid.UUID) (int, error)
	GetUsageFunc        func(ctx context.Context, userID uuid.UUID) (*domain.QuotaUsage, error)
}

func (m *mockQuotaService) CheckAndReserve(ctx context.Context, userID uuid.UUID) (*domain.Reservation, error) {
	if m.CheckAndReserveFunc != nil {
		return m.CheckAndReserveFunc(ctx, userID)
	}
	return nil, errors.New("CheckAndReserveFunc not implemented")
}

func (m *mockQuotaService) ReserveRun(ctx context.Context, userID uuid.UUID, acceptOverdraft bool) (*domain.Reservation, error) {
	return nil, errors.New("ReserveRun not implemented")
}

func (m *mockQuotaService) Decrement(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.DecrementFunc != nil {
		return m.DecrementFunc(ctx, userID)
	}
	return 0, errors.New("DecrementFunc not implemented")
}

func (m *mockQuotaService) GetUsage(ctx context.Context, userID uuid.UUID) (*domain.QuotaUsage, error) {
	if m.GetUsageFunc != nil {
		return m.GetUsageFunc(ctx, userID)
	}
	return nil, errors.New("GetUsageFunc not implemented")
}

func (m *mockQuotaService) Mode() domain.DecrementMode {
	return domain.DecrementReserveConfirm
}

type mockVideoService struct {
	UploadFunc func(ctx context.Context, params domain.UploadVideoParams) (*domain.Video, error)
	GetFunc    func(ctx context.Context, videoID, userID uuid.UUID) (*domain.Video, error)
	ListFunc   func(ctx context.Context, userID uuid.UUID, period domain.Period) ([]domain.Video, error)
}

func (m *mockVideoService) Upload(ctx context.Context, params domain.UploadVideoParams) (*domain.Video, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, params)
	}
	return nil, errors.New("UploadFunc not implemented")
}

func (m *mockVideoService) Get(ctx context.Context, videoID, userID uuid.UUID) (*domain.Video, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, videoID, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockVideoService) List(ctx context.Context, userID uuid.UUID, period domain.Period) ([]domain.Video, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, period)
	}
	return nil, errors.New("ListFunc not implemented")
}

func (m *mockVideoService) SetStatus(ctx context.Context, videoID uuid.UUID, status domain.VideoStatus) error {
	return nil
}

type mockProcessingService struct {
	ProcessFunc     func(ctx context.Context, params domain.ProcessParams) (*domain.Notes, error)
	LatestNotesFunc func(ctx context.Context, videoID, userID uuid.UUID) (*domain.Notes, error)
}

func (m *mockProcessingService) Process(ctx context.Context, params domain.ProcessParams) (*domain.Notes, error) {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, params)
	}
	return nil, errors.New("ProcessFunc not implemented")
}

func (m *mockProcessingService) LatestNotes(ctx context.Context, videoID, userID uuid.UUID) (*domain.Notes, error) {
	if m.LatestNotesFunc != nil {
		return m.LatestNotesFunc(ctx, videoID, userID)
	}
	return nil, errors.New("LatestNotesFunc not implemented")
}

// =============================================================================
// Helpers
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withUser attaches user to the request as WithUser would.
func withUser(r *http.Request, user *domain.User) *http.Request {
	return r.WithContext(auth.SetUser(r.Context(), user))
}

// passThrough stands in for RequireUser in route registration tests.
func passThrough(h http.Handler) http.Handler { return h }

func testUser() *domain.User {
	return &domain.User{
		ID:         uuid.New(),
		Name:       "Ada",
		Username:   "ada",
		Email:      "ada@example.com",
		UserType:   domain.UserTypePersonal,
		Tier:       domain.TierStarter,
		UsageCount: 3,
		IsVerified: true,
	}
}
