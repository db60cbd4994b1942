package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/DukeRupert/notegenie/internal"
	"github.com/DukeRupert/notegenie/internal/ai"
	aimock "github.com/DukeRupert/notegenie/internal/ai/mock"
	"github.com/DukeRupert/notegenie/internal/ai/remote"
	"github.com/DukeRupert/notegenie/internal/billing"
	"github.com/DukeRupert/notegenie/internal/email"
	"github.com/DukeRupert/notegenie/internal/handler"
	"github.com/DukeRupert/notegenie/internal/invite"
	"github.com/DukeRupert/notegenie/internal/metrics"
	"github.com/DukeRupert/notegenie/internal/middleware"
	"github.com/DukeRupert/notegenie/internal/report"
	"github.com/DukeRupert/notegenie/internal/repository"
	"github.com/DukeRupert/notegenie/internal/service"
	"github.com/DukeRupert/notegenie/internal/storage"
	"github.com/DukeRupert/notegenie/internal/worker"
)


func run() error {
	migrationStatus := flag.Bool("migration-status", false, "print migration status and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if *migrationStatus {
		return internal.MigrationStatus(db)
	}

	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	repo := repository.New(db)

	// ==========================================================================
	// Collaborators
	// ==========================================================================

	store, filesHandler, err := newStorage(cfg, logger)
	if err != nil {
		return err
	}

	provider, err := newNotesProvider(cfg, logger)
	if err != nil {
		return err
	}

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	sessionTTL := service.NormalizeSessionDuration(cfg.SessionTTL)
	userService := service.NewUserService(repo, mailer, service.UserServiceConfig{
		SessionDuration: sessionTTL,
		Invites:         invite.New(cfg.InviteCodesEnabled, cfg.InviteCodes),
	}, logger)
	quotaService := service.NewQuotaService(service.NewUsageStore(db, repo), service.QuotaServiceConfig{Mode: cfg.DecrementMode()}, logger)
	videoService := service.NewVideoService(repo, store, service.NewImagingProcessor(), service.VideoServiceConfig{MaxUploadBytes: cfg.MaxUploadBytes}, logger)
	processingService := service.NewProcessingService(repo, videoService, quotaService, provider, logger)

	var (
		billingService billing.Service
		events         *billing.EventProcessor
	)
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			ProPriceID:   cfg.StripePriceProID,
			ElitePriceID: cfg.StripePriceEliteID,
		})
		events = billing.NewEventProcessor(userService, billingService.TierForPriceID, logger)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, billing disabled")
	}

	// ==========================================================================
	// Middleware
	// ==========================================================================

	isSecure := !cfg.IsDevelopment()
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	authLimiter := middleware.NewAuthRateLimiter(logger)
	defer authLimiter.Close()
	requireUser := middleware.Stack(authMw.RequireUser)

	// ==========================================================================
	// Routes
	// ==========================================================================

	mux := http.NewServeMux()

	handler.NewHealthHandler(db, logger).RegisterRoutes(mux)
	handler.NewAuthHandler(userService, logger, isSecure, sessionTTL).RegisterRoutes(mux, requireUser, handler.AuthRouteLimits{
		SignUp: authLimiter.LimitSignUp,
		Verify: authLimiter.LimitVerify,
		SignIn: authLimiter.LimitSignIn,
	})
	handler.NewQuotaHandler(quotaService, logger).RegisterRoutes(mux, requireUser)
	handler.NewVideoHandler(videoService, processingService, cfg.MaxUploadBytes, logger).RegisterRoutes(mux, requireUser)
	handler.NewExportHandler(videoService, processingService, report.NewPDFGenerator(), logger).RegisterRoutes(mux, requireUser)
	handler.NewBillingHandler(billingService, events, userService, cfg.BaseURL, logger).RegisterRoutes(mux, requireUser)

	if filesHandler != nil {
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesHandler))
	}

	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)
	if !metricsAuth.Enabled() && !cfg.IsDevelopment() {
		logger.Warn("/metrics is served without authentication")
	}
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	corsMw := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
	})

	root := middleware.Stack(
		middleware.NewRequestLoggingMiddleware(logger).Handler,
		metrics.Middleware,
		middleware.NewSecurityHeadersMiddleware(isSecure).Handler,
		corsMw.Handler,
		authMw.WithUser,
	)(mux)

	// ==========================================================================
	// Background work
	// ==========================================================================

	maintenance, err := worker.New(worker.DefaultConfig(), logger)
	if err != nil {
		return fmt.Errorf("worker initialization failed: %w", err)
	}
	maintenance.Register(worker.SessionSweep{Sessions: userService, Logger: logger})
	// A video still processing after the longest possible request was
	// abandoned by a previous process.
	maintenance.Register(worker.StaleProcessingRecovery{
		Videos:    repo,
		Threshold: cfg.AITimeout + 5*time.Minute,
		Logger:    logger,
	})
	maintenance.Start(ctx)
	defer maintenance.Stop()

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads of up to 100MB over slow links.
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: cfg.AITimeout + time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the configured object store. The returned handler serves
// local files and is nil for R2.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, http.Handler, error) {
	switch cfg.StorageProvider {
	case "r2":
		s, err := storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("r2 storage initialization failed: %w", err)
		}
		logger.Info("Storage ready", "provider", "r2", "bucket", cfg.R2BucketName)
		return s, nil, nil
	default:
		s, err := storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  strings.TrimSuffix(cfg.LocalStorageURL, "/"),
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("local storage initialization failed: %w", err)
		}
		logger.Info("Storage ready", "provider", "local", "path", cfg.LocalStoragePath)
		return s, s.Handler(), nil
	}
}

func newNotesProvider(cfg *internal.Config, logger *slog.Logger) (ai.NotesProvider, error) {
	if cfg.AIProvider == "mock" {
		logger.Warn("Using mock AI provider")
		return aimock.New(logger), nil
	}
	p, err := remote.New(remote.Config{BaseURL: cfg.AIServiceURL, Timeout: cfg.AITimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("ai provider initialization failed: %w", err)
	}
	return p, nil
}

func newMailer(cfg *internal.Config, logger *slog.Logger) (email.EmailService, error) {
	if cfg.EmailProvider == "log" {
		return email.NewLogEmailService(logger), nil
	}
	m, err := email.NewSMTPEmailService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("email service initialization failed: %w", err)
	}
	return m, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
