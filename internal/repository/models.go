package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type User struct {
	ID                  uuid.UUID      `json:"id"`
	Name                string         `json:"name"`
	Username            string         `json:"username"`
	Email               string         `json:"email"`
	PasswordHash        string         `json:"password_hash"`
	UserType            string         `json:"user_type"`
	Tier                string         `json:"tier"`
	UsageCount          int32          `json:"usage_count"`
	LastResetAt         time.Time      `json:"last_reset_at"`
	IsVerified          bool           `json:"is_verified"`
	VerifyCode          string         `json:"verify_code"`
	VerifyCodeExpiresAt time.Time      `json:"verify_code_expires_at"`
	StripeCustomerID    sql.NullString `json:"stripe_customer_id"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Video struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Filename    string         `json:"filename"`
	StorageKey  string         `json:"storage_key"`
	PosterKey   sql.NullString `json:"poster_key"`
	ContentType string         `json:"content_type"`
	SizeBytes   int64          `json:"size_bytes"`
	Status      string         `json:"status"`
	UploadedAt  time.Time      `json:"uploaded_at"`
}

type VideoNote struct {
	ID              uuid.UUID             `json:"id"`
	VideoID         uuid.UUID             `json:"video_id"`
	UserID          uuid.UUID             `json:"user_id"`
	Transcript      string                `json:"transcript"`
	Notes           string                `json:"notes"`
	ActionItems     pqtype.NullRawMessage `json:"action_items"`
	ReducedAccuracy bool                  `json:"reduced_accuracy"`
	CreatedAt       time.Time             `json:"created_at"`
}
