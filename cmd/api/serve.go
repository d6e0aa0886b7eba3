package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/beemart/server/internal/auth"
	"github.com/beemart/server/internal/config"
	"github.com/beemart/server/internal/db"
	httphandler "github.com/beemart/server/internal/http"
	"github.com/beemart/server/internal/http/handlers"
	"github.com/beemart/server/internal/metrics"
	"github.com/beemart/server/internal/middleware"
	"github.com/beemart/server/internal/repo"
	"github.com/beemart/server/internal/telemetry"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, database, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	orm, err := db.OpenORM(database)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Initialize repositories
	accountRepo := repo.NewAccountRepo(database)
	otpRepo := repo.NewOtpRepo(database)

	// Initialize auth services
	otpProvider := auth.NewOtpIssuer(otpRepo, cfg.OTPSalt, cfg.OTPDevMode)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	otpLimiter := middleware.NewRateLimiter(cfg.OTPIssueWindow, cfg.OTPIssueLimit)
	go otpLimiter.Run(ctx, time.Minute)

	authService := auth.NewAuthService(accountRepo, otpProvider, jwtService, newNotifier(cfg), otpLimiter, m)
	guard := auth.NewAdminGuard(jwtService, accountRepo, m)

	cookies := handlers.CookieConfig{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain}
	deps := httphandler.RouterDeps{
		Logger:                log.Logger,
		Auth:                  handlers.NewAuthHandler(authService, cookies),
		Health:                handlers.NewHealthHandler(database),
		Metrics:               promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Guard:                 guard,
		Catalog:               handlers.CatalogResources(orm),
		AllowedOrigins:        cfg.AllowedOrigins,
		AuthRequestsPerMinute: cfg.AuthRequestsPerMinute,
	}
	if cfg.GoogleEnabled() {
		provider := auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Timeout:      cfg.OAuthTimeout,
		})
		federation := auth.NewFederationService(provider, accountRepo, jwtService, m)
		deps.OAuth = handlers.NewOAuthHandler(federation, cfg.FrontendURL, cookies)
	} else {
		log.Info().Msg("google sign-in disabled")
	}

	var handler http.Handler = httphandler.NewRouter(deps)
	if cfg.OTLPEndpoint != "" {
		handler = telemetry.Middleware(serviceName)(handler)
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server exited")
	return nil
}

func newNotifier(cfg *config.Config) auth.Notifier {
	if cfg.SMTPHost == "" {
		log.Warn().Msg("SMTP_HOST not set, passcodes are written to the log")
		return auth.LogNotifier{}
	}
	return auth.NewSMTPNotifier(auth.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		Timeout:  cfg.MailTimeout,
	})
}
