package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendant/photodrop/internal/metrics"
	"github.com/tendant/photodrop/pkg/eventtoken"
	"github.com/tendant/photodrop/pkg/photodrop"
	"github.com/tendant/photodrop/pkg/photodrop/api"
	"github.com/tendant/photodrop/pkg/photodrop/config"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload relay HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []config.Option
			if port != "" {
				opts = append(opts, config.WithPort(port))
			}

			cfg, err := loadConfig(opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")

	return cmd
}

// newServer wires the configuration into the HTTP layer
func newServer(ctx context.Context, cfg *config.ServerConfig) (*api.Server, error) {
	components, err := cfg.BuildService(ctx, photodrop.WithRecorder(metrics.UploadRecorder{}))
	if err != nil {
		return nil, err
	}

	if components.Signer.DevTokenEnabled() {
		slog.Warn("DEV token is accepted for uploads", "event_id", eventtoken.DevEventID)
	}

	authorizer := photodrop.NewAuthorizer(components.Signer,
		photodrop.WithVerificationObserver(metrics.ObserveVerification))

	opts := []api.Option{
		api.WithPublicBaseURL(cfg.PublicBaseURL),
		api.WithRequireHTTPS(cfg.IsProduction()),
		api.WithMaxUploadBytes(cfg.Upload.MaxBytes),
		api.WithRequireImageType(cfg.Upload.RequireImageType),
		api.WithRateLimit(cfg.Upload.RateLimitPerMinute),
		api.WithTrustedProxies(cfg.TrustedProxyCIDRs),
		api.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		api.WithMetricsHandler(metrics.Handler()),
		api.WithIssueObserver(metrics.ObserveIssued),
	}
	if cfg.AdminEnabled() {
		if cfg.AdminAPIKeySHA256 == "" {
			slog.Warn("Admin routes are unprotected; set ADMIN_API_KEY_SHA256 outside development")
		}
		opts = append(opts, api.WithAdmin(cfg.AdminAPIKeySHA256))
	}

	return api.NewServer(components.Signer, authorizer, components.Service, opts...), nil
}

func runServer(ctx context.Context, cfg *config.ServerConfig) error {
	metrics.Init(version, commit, date)

	srv, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("photodrop starting", "port", cfg.Port, "environment", cfg.Environment,
			"storage", cfg.StorageURL, "dev_token", cfg.EnableDevToken)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server exiting")
	return nil
}
