package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, name, username, email, password_hash, user_type, tier, usage_count,
    last_reset_at, is_verified, verify_code, verify_code_expires_at, stripe_customer_id,
    created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Username,
		&i.Email,
		&i.PasswordHash,
		&i.UserType,
		&i.Tier,
		&i.UsageCount,
		&i.LastResetAt,
		&i.IsVerified,
		&i.VerifyCode,
		&i.VerifyCodeExpiresAt,
		&i.StripeCustomerID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (name, username, email, password_hash, user_type, tier, usage_count, verify_code, verify_code_expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + userColumns

type CreateUserParams struct {
	Name                string    `json:"name"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"password_hash"`
	UserType            string    `json:"user_type"`
	Tier                string    `json:"tier"`
	UsageCount          int32     `json:"usage_count"`
	VerifyCode          string    `json:"verify_code"`
	VerifyCodeExpiresAt time.Time `json:"verify_code_expires_at"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Name,
		arg.Username,
		arg.Email,
		arg.PasswordHash,
		arg.UserType,
		arg.Tier,
		arg.UsageCount,
		arg.VerifyCode,
		arg.VerifyCodeExpiresAt,
	)
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByIDForUpdate = `-- name: GetUserByIDForUpdate :one
SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

// GetUserByIDForUpdate locks the row until the surrounding transaction ends.
func (q *Queries) GetUserByIDForUpdate(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByIDForUpdate, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getVerifiedUserByUsername = `-- name: GetVerifiedUserByUsername :one
SELECT ` + userColumns + ` FROM users WHERE username = $1 AND is_verified`

func (q *Queries) GetVerifiedUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getVerifiedUserByUsername, username))
}

const getUnverifiedUserByUsername = `-- name: GetUnverifiedUserByUsername :one
SELECT ` + userColumns + ` FROM users WHERE username = $1 AND NOT is_verified
ORDER BY created_at DESC
LIMIT 1`

func (q *Queries) GetUnverifiedUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUnverifiedUserByUsername, username))
}

const getUserByIdentifier = `-- name: GetUserByIdentifier :one
SELECT ` + userColumns + ` FROM users
WHERE email = lower($1) OR (username = $1 AND is_verified)
LIMIT 1`

// GetUserByIdentifier resolves a sign-in identifier that may be an email or
// a verified username.
func (q *Queries) GetUserByIdentifier(ctx context.Context, identifier string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByIdentifier, identifier))
}

const getUserByStripeCustomerID = `-- name: GetUserByStripeCustomerID :one
SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`

func (q *Queries) GetUserByStripeCustomerID(ctx context.Context, stripeCustomerID sql.NullString) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByStripeCustomerID, stripeCustomerID))
}

const refreshUnverifiedUser = `-- name: RefreshUnverifiedUser :exec
UPDATE users
SET name = $2, username = $3, password_hash = $4, user_type = $5,
    verify_code = $6, verify_code_expires_at = $7, updated_at = NOW()
WHERE id = $1 AND NOT is_verified`

type RefreshUnverifiedUserParams struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Username            string    `json:"username"`
	PasswordHash        string    `json:"password_hash"`
	UserType            string    `json:"user_type"`
	VerifyCode          string    `json:"verify_code"`
	VerifyCodeExpiresAt time.Time `json:"verify_code_expires_at"`
}

func (q *Queries) RefreshUnverifiedUser(ctx context.Context, arg RefreshUnverifiedUserParams) error {
	_, err := q.db.ExecContext(ctx, refreshUnverifiedUser,
		arg.ID,
		arg.Name,
		arg.Username,
		arg.PasswordHash,
		arg.UserType,
		arg.VerifyCode,
		arg.VerifyCodeExpiresAt,
	)
	return err
}

const markUserVerified = `-- name: MarkUserVerified :exec
UPDATE users SET is_verified = TRUE, verify_code = '', updated_at = NOW() WHERE id = $1`

func (q *Queries) MarkUserVerified(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markUserVerified, id)
	return err
}

const updateUserUsage = `-- name: UpdateUserUsage :exec
UPDATE users SET usage_count = $2, last_reset_at = $3, updated_at = NOW() WHERE id = $1`

type UpdateUserUsageParams struct {
	ID          uuid.UUID `json:"id"`
	UsageCount  int32     `json:"usage_count"`
	LastResetAt time.Time `json:"last_reset_at"`
}

func (q *Queries) UpdateUserUsage(ctx context.Context, arg UpdateUserUsageParams) error {
	_, err := q.db.ExecContext(ctx, updateUserUsage, arg.ID, arg.UsageCount, arg.LastResetAt)
	return err
}

const decrementUserUsage = `-- name: DecrementUserUsage :one
UPDATE users SET usage_count = usage_count - 1, updated_at = NOW()
WHERE id = $1
RETURNING usage_count`

// DecrementUserUsage subtracts one use in a single statement and returns the
// new balance.
func (q *Queries) DecrementUserUsage(ctx context.Context, id uuid.UUID) (int32, error) {
	row := q.db.QueryRowContext(ctx, decrementUserUsage, id)
	var usageCount int32
	err := row.Scan(&usageCount)
	return usageCount, err
}

const updateUserTier = `-- name: UpdateUserTier :exec
UPDATE users SET tier = $2, updated_at = NOW() WHERE id = $1`

type UpdateUserTierParams struct {
	ID   uuid.UUID `json:"id"`
	Tier string    `json:"tier"`
}

func (q *Queries) UpdateUserTier(ctx context.Context, arg UpdateUserTierParams) error {
	_, err := q.db.ExecContext(ctx, updateUserTier, arg.ID, arg.Tier)
	return err
}

const updateUserStripeCustomer = `-- name: UpdateUserStripeCustomer :exec
UPDATE users SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`

type UpdateUserStripeCustomerParams struct {
	ID               uuid.UUID      `json:"id"`
	StripeCustomerID sql.NullString `json:"stripe_customer_id"`
}

func (q *Queries) UpdateUserStripeCustomer(ctx context.Context, arg UpdateUserStripeCustomerParams) error {
	_, err := q.db.ExecContext(ctx, updateUserStripeCustomer, arg.ID, arg.StripeCustomerID)
	return err
}
