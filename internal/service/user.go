// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/email"
	"github.com/DukeRupert/notegenie/internal/invite"
	"github.com/DukeRupert/notegenie/internal/repository"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	BcryptCost = 12

	// DefaultSessionDuration is used when no duration is configured.
	DefaultSessionDuration = 7 * 24 * time.Hour

	minSessionDuration = 15 * time.Minute
	maxSessionDuration = 30 * 24 * time.Hour

	// MinPasswordLength is the minimum password length.
	MinPasswordLength = 8

	// MaxPasswordLength is the bcrypt input limit.
	MaxPasswordLength = 72

	verifyCodeDigits = 6
)

// usernamePattern allows letters, digits and underscores.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{2,30}$`)

// =============================================================================
// Interface Definition
// =============================================================================

// UserService manages accounts and sessions.
type UserService interface {
	// SignUp creates an unverified account and emails its verification code.
	// Signing up again with an unverified email refreshes the password and
	// the code. Returns domain.ECONFLICT for a taken username or a verified
	// email.
	SignUp(ctx context.Context, params domain.SignUpParams) (*domain.User, error)

	// VerifyCode marks the unverified account holding username as verified.
	VerifyCode(ctx context.Context, username, code string) (*domain.User, error)

	// Login authenticates by email or verified username and opens a session.
	Login(ctx context.Context, identifier, password string) (*domain.LoginResult, error)

	// Logout deletes the session. It is idempotent.
	Logout(ctx context.Context, token string) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken resolves a raw session token. Returns
	// domain.EUNAUTHORIZED for unknown or expired sessions.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error

	// UpdateTier changes the allowance used from the next reset on.
	UpdateTier(ctx context.Context, userID uuid.UUID, tier domain.Tier) error

	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// UserQueries is the subset of repository.Queries the user service uses.
type UserQueries interface {
	CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	GetVerifiedUserByUsername(ctx context.Context, username string) (repository.User, error)
	GetUnverifiedUserByUsername(ctx context.Context, username string) (repository.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (repository.User, error)
	GetUserByStripeCustomerID(ctx context.Context, stripeCustomerID sql.NullString) (repository.User, error)
	RefreshUnverifiedUser(ctx context.Context, arg repository.RefreshUnverifiedUserParams) error
	MarkUserVerified(ctx context.Context, id uuid.UUID) error
	UpdateUserTier(ctx context.Context, arg repository.UpdateUserTierParams) error
	UpdateUserStripeCustomer(ctx context.Context, arg repository.UpdateUserStripeCustomerParams) error
	CreateSession(ctx context.Context, arg repository.CreateSessionParams) (repository.Session, error)
	GetUserBySessionToken(ctx context.Context, tokenHash string) (repository.User, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// UserServiceConfig holds optional settings for the user service.
type UserServiceConfig struct {
	SessionDuration time.Duration
	// Invites gates sign-up; nil admits everyone.
	Invites *invite.Gate
	Now     func() time.Time
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	queries         UserQueries
	mailer          email.EmailService
	invites         *invite.Gate
	validate        *validator.Validate
	sessionDuration time.Duration
	bcryptCost      int
	now             func() time.Time
	logger          *slog.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(queries UserQueries, mailer email.EmailService, cfg UserServiceConfig, logger *slog.Logger) UserService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &userService{
		queries:         queries,
		mailer:          mailer,
		invites:         cfg.Invites,
		validate:        newSignUpValidator(),
		sessionDuration: NormalizeSessionDuration(cfg.SessionDuration),
		bcryptCost:      BcryptCost,
		now:             cfg.Now,
		logger:          logger,
	}
}

// NormalizeSessionDuration clamps d into [15m, 30d]; zero means the default.
func NormalizeSessionDuration(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultSessionDuration
	case d < minSessionDuration:
		return minSessionDuration
	case d > maxSessionDuration:
		return maxSessionDuration
	}
	return d
}

// =============================================================================
// Sign-up
// =============================================================================

type signUpInput struct {
	Name     string `validate:"max=100"`
	Username string `validate:"required,username"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
	UserType string `validate:"oneof=personal professional"`
}

func newSignUpValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

var signUpMessages = map[string]string{
	"Name":     "Name must be 100 characters or less",
	"Username": "Username must be 2-30 letters, digits or underscores",
	"Email":    "Invalid email address",
	"Password": "Password must be between 8 and 72 characters",
	"UserType": "User type must be personal or professional",
}

// SignUp registers an account.
//
// Flow:
// 1. Normalize and validate input
// 2. Reject usernames already claimed by a verified account
// 3. Reject emails owned by a verified account
// 4. Create the account, or refresh an unverified one with the same email
// 5. Email the verification code
func (s *userService) SignUp(ctx context.Context, params domain.SignUpParams) (*domain.User, error) {
	const op = "user.signup"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Username = strings.TrimSpace(params.Username)
	params.Name = strings.TrimSpace(params.Name)
	if params.UserType == "" {
		params.UserType = domain.UserTypePersonal
	}

	if err := s.validate.Struct(signUpInput{
		Name:     params.Name,
		Username: params.Username,
		Email:    params.Email,
		Password: params.Password,
		UserType: string(params.UserType),
	}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0].Field()
			return nil, domain.NewValidationError(op, strings.ToLower(field), signUpMessages[field])
		}
		return nil, domain.Invalid(op, "Invalid sign-up details")
	}

	if !s.invites.Allow(params.InviteCode) {
		return nil, domain.Forbidden(op, "A valid invite code is required to sign up")
	}

	if _, err := s.queries.GetVerifiedUserByUsername(ctx, params.Username); err == nil {
		return nil, domain.Conflict(op, "Username is already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to check username")
	}

	existing, err := s.queries.GetUserByEmail(ctx, params.Email)
	switch {
	case err == nil && existing.IsVerified:
		// Hash anyway so both branches take similar time
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
		return nil, domain.Conflict(op, "User already exists with this email.")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, domain.Internal(err, op, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to hash password")
	}
	code, err := generateVerifyCode()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate verification code")
	}
	expiresAt := s.now().Add(domain.VerifyCodeDuration)

	var row repository.User
	if existing.ID != uuid.Nil {
		err = s.queries.RefreshUnverifiedUser(ctx, repository.RefreshUnverifiedUserParams{
			ID:                  existing.ID,
			Name:                params.Name,
			Username:            params.Username,
			PasswordHash:        string(hash),
			UserType:            string(params.UserType),
			VerifyCode:          code,
			VerifyCodeExpiresAt: expiresAt,
		})
		if err != nil {
			return nil, domain.Internal(err, op, "failed to refresh account")
		}
		row = existing
		row.Name = params.Name
		row.Username = params.Username
		row.UserType = string(params.UserType)
	} else {
		row, err = s.queries.CreateUser(ctx, repository.CreateUserParams{
			Name:                params.Name,
			Username:            params.Username,
			Email:               params.Email,
			PasswordHash:        string(hash),
			UserType:            string(params.UserType),
			Tier:                string(domain.TierStarter),
			UsageCount:          int32(domain.TierStarter.Allowance()),
			VerifyCode:          code,
			VerifyCodeExpiresAt: expiresAt,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return nil, domain.Conflict(op, "User already exists with this email.")
			}
			return nil, domain.Internal(err, op, "failed to create account")
		}
	}

	if err := s.mailer.SendVerificationCode(ctx, params.Email, params.Username, code); err != nil {
		return nil, domain.Unavailable(err, op, "Could not send the verification email. Please try again.")
	}

	user := repoUserToDomain(row)
	user.PasswordHash = ""
	s.logger.Info("user signed up", "user_id", user.ID, "username", user.Username, "refreshed", existing.ID != uuid.Nil)
	return user, nil
}

// VerifyCode checks the code in constant time and marks the account verified.
func (s *userService) VerifyCode(ctx context.Context, username, code string) (*domain.User, error) {
	const op = "user.verify"

	row, err := s.queries.GetUnverifiedUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "failed to fetch user")
	}

	if !s.now().Before(row.VerifyCodeExpiresAt) {
		return nil, domain.Invalid(op, "Verification code has expired. Please sign up again to get a new code.")
	}
	if row.VerifyCode == "" || subtle.ConstantTimeCompare([]byte(row.VerifyCode), []byte(strings.TrimSpace(code))) != 1 {
		return nil, domain.Invalid(op, "Incorrect verification code")
	}

	if err := s.queries.MarkUserVerified(ctx, row.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, "Username is already taken")
		}
		return nil, domain.Internal(err, op, "failed to verify account")
	}

	row.IsVerified = true
	user := repoUserToDomain(row)
	user.PasswordHash = ""
	s.logger.Info("user verified", "user_id", user.ID)
	return user, nil
}

// =============================================================================
// Sessions
// =============================================================================

// Login authenticates a user and creates a new session.
//
// Unknown identifiers still run a bcrypt comparison so response time does
// not reveal which accounts exist.
func (s *userService) Login(ctx context.Context, identifier, password string) (*domain.LoginResult, error) {
	const op = "user.login"

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, domain.Invalid(op, "Identifier and password are required")
	}

	row, err := s.queries.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid credentials")
		}
		return nil, domain.Internal(err, op, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid credentials")
	}
	if !row.IsVerified {
		return nil, domain.Forbidden(op, "Please verify your account before signing in")
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate session token")
	}
	expiresAt := s.now().Add(s.sessionDuration)

	if _, err := s.queries.CreateSession(ctx, repository.CreateSessionParams{
		UserID:    row.ID,
		TokenHash: hashSessionToken(token),
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, domain.Internal(err, op, "failed to create session")
	}

	user := repoUserToDomain(row)
	user.PasswordHash = ""
	s.logger.Info("user logged in", "user_id", user.ID)

	return &domain.LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *userService) Logout(ctx context.Context, token string) error {
	if len(token) != domain.SessionTokenBytes*2 {
		return nil
	}
	if err := s.queries.DeleteSessionByTokenHash(ctx, hashSessionToken(token)); err != nil {
		s.logger.Warn("failed to delete session", "error", err)
	}
	return nil
}

func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.session"

	if len(token) != domain.SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	row, err := s.queries.GetUserBySessionToken(ctx, hashSessionToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "failed to fetch session")
	}

	user := repoUserToDomain(row)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, domain.Internal(err, "user.sessions.cleanup", "failed to delete expired sessions")
	}
	if n > 0 {
		s.logger.Info("expired sessions deleted", "count", n)
	}
	return n, nil
}

// =============================================================================
// Lookups and billing updates
// =============================================================================

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get"

	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "failed to fetch user")
	}
	user := repoUserToDomain(row)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	const op = "user.get_by_customer"

	row, err := s.queries.GetUserByStripeCustomerID(ctx, sql.NullString{String: customerID, Valid: customerID != ""})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "User not found")
		}
		return nil, domain.Internal(err, op, "failed to fetch user")
	}
	user := repoUserToDomain(row)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	const op = "user.update_customer"

	if err := s.queries.UpdateUserStripeCustomer(ctx, repository.UpdateUserStripeCustomerParams{
		ID:               userID,
		StripeCustomerID: sql.NullString{String: customerID, Valid: customerID != ""},
	}); err != nil {
		return domain.Internal(err, op, "failed to update customer")
	}
	return nil
}

func (s *userService) UpdateTier(ctx context.Context, userID uuid.UUID, tier domain.Tier) error {
	const op = "user.update_tier"

	if !tier.Valid() {
		return domain.Invalid(op, fmt.Sprintf("Unknown tier %q", tier))
	}
	if err := s.queries.UpdateUserTier(ctx, repository.UpdateUserTierParams{ID: userID, Tier: string(tier)}); err != nil {
		return domain.Internal(err, op, "failed to update tier")
	}
	s.logger.Info("tier changed", "user_id", userID, "tier", tier)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// generateSessionToken returns 32 random bytes hex-encoded.
func generateSessionToken() (string, error) {
	b := make([]byte, domain.SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSessionToken is the stored form of a session token.
func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generateVerifyCode returns a uniformly random 6-digit code.
func generateVerifyCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", verifyCodeDigits, n.Int64()), nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func repoUserToDomain(u repository.User) *domain.User {
	return &domain.User{
		ID:               u.ID,
		Name:             u.Name,
		Username:         u.Username,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		UserType:         domain.UserType(u.UserType),
		Tier:             domain.Tier(u.Tier),
		UsageCount:       int(u.UsageCount),
		LastResetAt:      u.LastResetAt,
		IsVerified:       u.IsVerified,
		StripeCustomerID: u.StripeCustomerID.String,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}
