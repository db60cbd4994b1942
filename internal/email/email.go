// Package email provides email sending functionality for NoteGenie.
//
// This package defines an EmailService interface with implementations for:
// - SMTP (Mailhog in development, any authenticated relay in production)
// - Log (prints the message instead of sending, for local runs without SMTP)
package email

import (
	"context"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EmailService sends transactional emails.
//
// All methods are context-aware for timeout and cancellation support.
type EmailService interface {
	// SendVerificationCode sends the 6-digit sign-up code to a new user.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - code: The verification code
	SendVerificationCode(ctx context.Context, to, name, code string) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	HTMLBody string // HTML content of the email
	TextBody string // Plain text fallback content
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

const (
	// DefaultFromEmail is the default sender email for transactional emails.
	DefaultFromEmail = "noreply@notegenie.app"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "NoteGenie"
)
