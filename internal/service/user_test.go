package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/invite"
)

type userFixture struct {
	svc     UserService
	queries *memUserQueries
	mailer  *fakeMailer
	now     time.Time
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		mailer: &fakeMailer{},
		now:    time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.queries = newMemUserQueries(clock)
	svc := NewUserService(f.queries, f.mailer, UserServiceConfig{
		SessionDuration: 24 * time.Hour,
		Now:             clock,
	}, testLogger())
	svc.(*userService).bcryptCost = bcrypt.MinCost
	f.svc = svc
	return f
}

func signUpParams() domain.SignUpParams {
	return domain.SignUpParams{
		Name:     "Ada Lovelace",
		Username: "ada",
		Email:    "Ada@Example.com",
		Password: "analytical-engine",
		UserType: domain.UserTypeProfessional,
	}
}

func (f *userFixture) signUpAndVerify(t *testing.T) *domain.User {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, signUpParams())
	require.NoError(t, err)
	user, err := f.svc.VerifyCode(ctx, "ada", f.mailer.code("ada@example.com"))
	require.NoError(t, err)
	return user
}

func TestSignUp_CreatesStarterAccount(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.svc.SignUp(context.Background(), signUpParams())
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, domain.TierStarter, user.Tier)
	assert.Equal(t, 3, user.UsageCount)
	assert.Equal(t, domain.UserTypeProfessional, user.UserType)
	assert.False(t, user.IsVerified)
	assert.Empty(t, user.PasswordHash)

	stored, err := f.queries.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.mailer.code("ada@example.com"), stored.VerifyCode)
	assert.Equal(t, f.now.Add(time.Hour), stored.VerifyCodeExpiresAt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("analytical-engine")))
}

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*domain.SignUpParams)
	}{
		{"bad email", func(p *domain.SignUpParams) { p.Email = "not-an-email" }},
		{"short password", func(p *domain.SignUpParams) { p.Password = "short" }},
		{"long password", func(p *domain.SignUpParams) { p.Password = string(make([]byte, 73)) }},
		{"username with spaces", func(p *domain.SignUpParams) { p.Username = "ada lovelace" }},
		{"missing username", func(p *domain.SignUpParams) { p.Username = "" }},
		{"unknown user type", func(p *domain.SignUpParams) { p.UserType = "enterprise" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)
			params := signUpParams()
			tt.modify(&params)

			_, err := f.svc.SignUp(context.Background(), params)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.NotEmpty(t, domain.ErrorMessage(err))
		})
	}
}

func TestSignUp_InviteGate(t *testing.T) {
	f := newUserFixture(t)
	f.svc.(*userService).invites = invite.New(true, []string{"EARLY-BIRD"})
	ctx := context.Background()

	params := signUpParams()
	params.InviteCode = "nope"
	_, err := f.svc.SignUp(ctx, params)
	require.Error(t, err)
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	assert.Empty(t, f.mailer.code("ada@example.com"))

	params.InviteCode = "early-bird"
	user, err := f.svc.SignUp(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)
}

func TestSignUp_UnverifiedEmailIsRefreshed(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	first, err := f.svc.SignUp(ctx, signUpParams())
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Hour)
	params := signUpParams()
	params.Username = "ada_l"
	params.Password = "difference-engine"
	second, err := f.svc.SignUp(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "ada_l", second.Username)
	assert.Len(t, f.queries.users, 1)

	stored, _ := f.queries.GetUserByID(ctx, first.ID)
	assert.Equal(t, f.now.Add(time.Hour), stored.VerifyCodeExpiresAt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("difference-engine")))
	assert.Equal(t, f.mailer.code("ada@example.com"), stored.VerifyCode)
}

func TestSignUp_Conflicts(t *testing.T) {
	f := newUserFixture(t)
	f.signUpAndVerify(t)
	ctx := context.Background()

	params := signUpParams()
	params.Email = "other@example.com"
	_, err := f.svc.SignUp(ctx, params)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, "Username is already taken", domain.ErrorMessage(err))

	params = signUpParams()
	params.Username = "someone_else"
	_, err = f.svc.SignUp(ctx, params)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, "User already exists with this email.", domain.ErrorMessage(err))
}

func TestSignUp_UnverifiedUsernameCanBeReused(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, signUpParams())
	require.NoError(t, err)

	params := signUpParams()
	params.Email = "other@example.com"
	_, err = f.svc.SignUp(ctx, params)
	assert.NoError(t, err)
}

func TestSignUp_MailFailure(t *testing.T) {
	f := newUserFixture(t)
	f.mailer.err = errors.New("smtp down")

	_, err := f.svc.SignUp(context.Background(), signUpParams())
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
}

func TestVerifyCode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newUserFixture(t)
		user := f.signUpAndVerify(t)
		assert.True(t, user.IsVerified)
	})

	t.Run("wrong code", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.SignUp(context.Background(), signUpParams())
		require.NoError(t, err)

		code := f.mailer.code("ada@example.com")
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		_, err = f.svc.VerifyCode(context.Background(), "ada", wrong)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		assert.Equal(t, "Incorrect verification code", domain.ErrorMessage(err))
	})

	t.Run("expired code", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.SignUp(context.Background(), signUpParams())
		require.NoError(t, err)

		f.now = f.now.Add(time.Hour)
		_, err = f.svc.VerifyCode(context.Background(), "ada", f.mailer.code("ada@example.com"))
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		assert.Contains(t, domain.ErrorMessage(err), "expired")
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.VerifyCode(context.Background(), "nobody", "123456")
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})
}

func TestLogin(t *testing.T) {
	f := newUserFixture(t)
	verified := f.signUpAndVerify(t)
	ctx := context.Background()

	for _, identifier := range []string{"ada", "ADA@example.com"} {
		t.Run(identifier, func(t *testing.T) {
			res, err := f.svc.Login(ctx, identifier, "analytical-engine")
			require.NoError(t, err)
			assert.Equal(t, verified.ID, res.User.ID)
			assert.Len(t, res.Token, 64)
			assert.Equal(t, f.now.Add(24*time.Hour), res.ExpiresAt)

			user, err := f.svc.GetBySessionToken(ctx, res.Token)
			require.NoError(t, err)
			assert.Equal(t, verified.ID, user.ID)
		})
	}

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "ada", "wrong-password")
		assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "grace", "analytical-engine")
		assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	})
}

func TestLogin_RequiresVerification(t *testing.T) {
	f := newUserFixture(t)
	_, err := f.svc.SignUp(context.Background(), signUpParams())
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "ada@example.com", "analytical-engine")
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
}

func TestSessionLifecycle(t *testing.T) {
	f := newUserFixture(t)
	f.signUpAndVerify(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "ada", "analytical-engine")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.Token))
	_, err = f.svc.GetBySessionToken(ctx, res.Token)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	assert.NoError(t, f.svc.Logout(ctx, "garbage"))

	res, err = f.svc.Login(ctx, "ada", "analytical-engine")
	require.NoError(t, err)
	f.now = f.now.Add(25 * time.Hour)
	_, err = f.svc.GetBySessionToken(ctx, res.Token)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	n, err := f.svc.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdateTierAndCustomer(t *testing.T) {
	f := newUserFixture(t)
	user := f.signUpAndVerify(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateStripeCustomer(ctx, user.ID, "cus_123"))
	require.NoError(t, f.svc.UpdateTier(ctx, user.ID, domain.TierElite))

	got, err := f.svc.GetByStripeCustomerID(ctx, "cus_123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, domain.TierElite, got.Tier)
	// The balance refills to the new allowance at the next reset.
	assert.Equal(t, 3, got.UsageCount)

	assert.Equal(t, domain.EINVALID, domain.ErrorCode(f.svc.UpdateTier(ctx, user.ID, "Platinum")))

	_, err = f.svc.GetByStripeCustomerID(ctx, "cus_missing")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	_, err = f.svc.GetByID(ctx, uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
