package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mmynk/churchboard/internal/ai"
	"github.com/mmynk/churchboard/internal/api"
	"github.com/mmynk/churchboard/internal/auth"
	"github.com/mmynk/churchboard/internal/blob"
	"github.com/mmynk/churchboard/internal/config"
	"github.com/mmynk/churchboard/internal/metrics"
	mw "github.com/mmynk/churchboard/internal/middleware"
	"github.com/mmynk/churchboard/internal/notify"
	"github.com/mmynk/churchboard/internal/service"
	"github.com/mmynk/churchboard/internal/storage"
)

func runServe(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		return err
	}
	defer store.Close()

	collector := metrics.NewCollector()
	registry, err := metrics.NewRegistry(collector)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	notifier := notify.New(store, newMailer(ctx, cfg), collector, notify.Config{BaseURL: cfg.BaseURL})
	defer notifier.Wait()

	svc, opts, err := buildServices(ctx, cfg, store, notifier, collector)
	if err != nil {
		return err
	}

	mux := api.NewRouter(svc, opts)
	mux.Handle("GET /metrics", metrics.Handler(registry))

	handler := mw.Chain(mux, mw.Logging, mw.Metrics(collector), mw.CORS(cfg.CORSOrigins))

	srv := &http.Server{
		Addr: cfg.Addr,
		// Wrap with h2c for HTTP/2 without TLS behind a proxy
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "address", cfg.Addr, "auth_mode", cfg.Auth.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		return err
	}
	slog.Info("Server stopped")
	return nil
}

// buildServices wires the service layer and router options from cfg.
func buildServices(ctx context.Context, cfg *config.Config, store storage.Store, notifier *notify.Notifier, collector *metrics.Collector) (api.Services, api.Options, error) {
	admins := auth.NewAdminEmails(cfg.Auth.AdminEmails)
	var requirementNotifier service.RequirementNotifier
	if notifier != nil {
		requirementNotifier = notifier
	}
	svc := api.Services{
		Requirements: service.NewRequirementService(store, requirementNotifier, newPresigner(ctx, cfg), collector),
		Comments:     service.NewCommentService(store),
		Admin:        service.NewAdminService(store),
		Tithe:        service.NewTitheService(store),
		Reports:      service.NewReportService(store),
		AI:           service.NewAIService(newRecognizer(ctx, cfg), collector),
	}

	burst := cfg.AI.Burst
	if burst <= 0 {
		burst = 1
	}
	opts := api.Options{
		AILimiter: mw.NewRateLimiter(rate.Every(time.Minute/time.Duration(cfg.AI.RatePerMinute)), burst),
		Static:    newStatic(cfg.StaticPath),
		Ping:      store.Ping,
	}

	switch cfg.Auth.Mode {
	case config.AuthModeLocal:
		jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		logger := slog.Default().With("component", "auth")
		svc.Auth = service.NewAuthService(auth.NewPasswordAuthenticator(store, admins), jwtManager, logger)
		svc.Users = service.NewUserService(store, admins, false)
		opts.Verifier = jwtManager
	default:
		verifier, err := auth.NewFirebaseVerifier(ctx, auth.FirebaseConfig{ProjectID: cfg.Auth.FirebaseProjectID})
		if err != nil {
			return api.Services{}, api.Options{}, fmt.Errorf("failed to initialize token verifier: %w", err)
		}
		svc.Users = service.NewUserService(store, admins, true)
		opts.Verifier = verifier
	}
	return svc, opts, nil
}

func newMailer(ctx context.Context, cfg *config.Config) notify.Mailer {
	if !cfg.GmailEnabled() {
		slog.Warn("Gmail is not configured, notification emails will only be logged")
		return notify.LogMailer{}
	}
	mailer, err := notify.NewGmailMailer(ctx, notify.GmailConfig{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		RefreshToken: cfg.Gmail.RefreshToken,
		From:         cfg.Gmail.From,
	})
	if err != nil {
		slog.Error("Failed to initialize Gmail, falling back to log mailer", "error", err)
		return notify.LogMailer{}
	}
	return mailer
}

func newPresigner(ctx context.Context, cfg *config.Config) blob.Presigner {
	s3cfg := blob.S3Config{
		Region:    cfg.S3.Region,
		Bucket:    cfg.S3.Bucket,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Endpoint:  cfg.S3.Endpoint,
		Expiry:    cfg.S3.URLExpiry,
	}
	if !s3cfg.Enabled() {
		slog.Info("Receipt storage disabled")
		return nil
	}
	p, err := blob.NewS3Presigner(ctx, s3cfg)
	if err != nil {
		slog.Error("Failed to initialize receipt storage", "error", err)
		return nil
	}
	return p
}

func newRecognizer(ctx context.Context, cfg *config.Config) ai.Recognizer {
	if cfg.AI.GeminiAPIKey == "" {
		slog.Info("Receipt recognition disabled")
		return nil
	}
	r, err := ai.NewGeminiRecognizer(ctx, ai.GeminiConfig{
		APIKey:     cfg.AI.GeminiAPIKey,
		Model:      cfg.AI.Model,
		Categories: cfg.AccountingCategories,
	})
	if err != nil {
		slog.Error("Failed to initialize receipt recognition", "error", err)
		return nil
	}
	return r
}

func newStatic(path string) http.Handler {
	if path == "" {
		return nil
	}
	staticDir, err := filepath.Abs(path)
	if err != nil {
		slog.Error("Failed to resolve static path", "error", err)
		return nil
	}
	if _, err := os.Stat(filepath.Join(staticDir, "index.html")); err != nil {
		slog.Warn("Static files not found, serving API only", "path", staticDir)
		return nil
	}
	slog.Info("Serving static files", "path", staticDir)
	return api.SPAHandler(staticDir)
}
