// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and related types for authentication.
// These types are separate from the repository models so the service layer
// can enrich them without touching the database layer.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserType distinguishes personal from professional accounts.
type UserType string

const (
	UserTypePersonal     UserType = "personal"
	UserTypeProfessional UserType = "professional"
)

const (
	// VerifyCodeDuration is how long a sign-up verification code is valid.
	VerifyCodeDuration = time.Hour

	// SessionTokenBytes is the number of random bytes in a session token.
	SessionTokenBytes = 32
)

// User represents a registered NoteGenie account.
type User struct {
	ID               uuid.UUID
	Name             string
	Username         string
	Email            string
	PasswordHash     string // never serialised
	UserType         UserType
	Tier             Tier
	UsageCount       int
	LastResetAt      time.Time
	IsVerified       bool
	StripeCustomerID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Usage returns the quota ledger embedded in the account.
func (u *User) Usage() Usage {
	return Usage{Tier: u.Tier, Count: u.UsageCount, LastResetAt: u.LastResetAt}
}

// DisplayName returns the user's name or username if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Session represents an authenticated session.
//
// Sessions are stored with a hashed token; the raw token is only handed to
// the client once at sign-in.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SignUpParams holds the fields of a new account.
type SignUpParams struct {
	Name     string
	Username string
	Email    string
	Password string
	UserType UserType

	// InviteCode is only checked when sign-up is invite-gated.
	InviteCode string
}

// LoginResult is returned by a successful sign-in. Token is the raw session
// token and is only available here.
type LoginResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}
