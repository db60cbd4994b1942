package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/DukeRupert/notegenie/internal/domain"
)

// Config holds the server configuration read from the environment.
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseUrl string `envconfig:"DATABASE_URL" required:"true"`

	// Application base URL, used in emails and Stripe redirects.
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	// Origins allowed to call the JSON API from a browser.
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Email delivery: "smtp" or "log"
	EmailProvider string `envconfig:"EMAIL_PROVIDER" default:"smtp"`

	// SMTP Configuration
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"noreply@notegenie.app"`
	SMTPFromName string `envconfig:"SMTP_FROM_NAME" default:"NoteGenie"`

	// Storage Configuration: "local" or "r2"
	StorageProvider  string `envconfig:"STORAGE_PROVIDER" default:"local"`
	LocalStoragePath string `envconfig:"LOCAL_STORAGE_PATH" default:"./storage"`
	LocalStorageURL  string `envconfig:"LOCAL_STORAGE_URL" default:"http://localhost:8080/files"`

	R2AccountID       string `envconfig:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `envconfig:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `envconfig:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `envconfig:"R2_BUCKET_NAME"`
	R2PublicURL       string `envconfig:"R2_PUBLIC_URL"`

	// Upload limits
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"104857600"`

	// AI processing collaborator: "remote" or "mock"
	AIProvider   string        `envconfig:"AI_PROVIDER" default:"remote"`
	AIServiceURL string        `envconfig:"AI_SERVICE_URL" default:"http://localhost:3002"`
	AITimeout    time.Duration `envconfig:"AI_TIMEOUT" default:"5m"`

	// When true a successful run is charged twice: once at reservation and
	// once after the AI call returns.
	QuotaConfirmDecrement bool `envconfig:"QUOTA_CONFIRM_DECREMENT" default:"true"`

	// Sessions
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	// Invite-gated sign-up
	InviteCodesEnabled bool     `envconfig:"INVITE_CODES_ENABLED" default:"false"`
	InviteCodes        []string `envconfig:"INVITE_CODES"`

	// Stripe Billing. Billing handlers answer 503 when the secret key is empty.
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePriceProID    string `envconfig:"STRIPE_PRICE_PRO"`
	StripePriceEliteID  string `envconfig:"STRIPE_PRICE_ELITE"`

	// Metrics endpoint authentication.
	// If both are empty, /metrics is unprotected.
	MetricsUsername string `envconfig:"METRICS_USERNAME"`
	MetricsPassword string `envconfig:"METRICS_PASSWORD"`
}

// NewConfig loads an optional .env file, reads the environment and validates
// the result.
func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	for i, origin := range cfg.CORSAllowedOrigins {
		cfg.CORSAllowedOrigins[i] = strings.TrimSpace(origin)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required values and provider-specific requirements.
func (c *Config) Validate() error {
	if c.DatabaseUrl == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.StorageProvider {
	case "local":
	case "r2":
		required := map[string]string{
			"R2_ACCOUNT_ID":        c.R2AccountID,
			"R2_ACCESS_KEY_ID":     c.R2AccessKeyID,
			"R2_SECRET_ACCESS_KEY": c.R2SecretAccessKey,
			"R2_BUCKET_NAME":       c.R2BucketName,
		}
		for _, name := range []string{"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME"} {
			if required[name] == "" {
				return fmt.Errorf("%s is required when STORAGE_PROVIDER is 'r2'", name)
			}
		}
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	if c.InviteCodesEnabled && len(c.InviteCodes) == 0 {
		return fmt.Errorf("INVITE_CODES is required when INVITE_CODES_ENABLED is true")
	}

	switch c.EmailProvider {
	case "smtp", "log":
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be either 'smtp' or 'log', got: %s", c.EmailProvider)
	}

	switch c.AIProvider {
	case "remote":
		if c.AIServiceURL == "" {
			return fmt.Errorf("AI_SERVICE_URL is required when AI_PROVIDER is 'remote'")
		}
	case "mock":
	default:
		return fmt.Errorf("AI_PROVIDER must be either 'remote' or 'mock', got: %s", c.AIProvider)
	}

	if c.MaxUploadBytes <= 0 || c.MaxUploadBytes > domain.MaxVideoBytes {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be between 1 and %d", domain.MaxVideoBytes)
	}

	return nil
}

// DecrementMode translates the confirm flag into the quota policy.
func (c *Config) DecrementMode() domain.DecrementMode {
	if c.QuotaConfirmDecrement {
		return domain.DecrementReserveConfirm
	}
	return domain.DecrementSingle
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
