package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/telhawk-systems/hookgate/common/logging"
	"github.com/telhawk-systems/hookgate/gateway/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook gateway",
	Long:  `Starts the HTTP server that receives webhook deliveries. Refuses to start without the app secret, verify token and Redis URL.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("hookgate"))
	logging.SetDefault(logger)

	slog.Info("Starting webhook gateway",
		slog.Int("port", cfg.Server.Port),
		slog.String("provider", cfg.Webhook.Provider),
		slog.String("log_level", cfg.Logging.Level),
	)
	if cfgFile != "" {
		slog.Info("Loaded configuration", slog.String("config_path", cfgFile))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize gateway", logging.Error(err))
		return err
	}
	slog.Info("Connected to Redis")

	return serve(ctx, cfg, a)
}

// serve runs the HTTP server until ctx is canceled, then drains in-flight
// requests before the store connections are closed.
func serve(ctx context.Context, cfg *config.Config, a *app) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Webhook listener started", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if closeErr := a.Close(); closeErr != nil {
		slog.Error("Failed to close store connections", logging.Error(closeErr))
	}
	if err != nil {
		slog.Error("Server stopped with error", logging.Error(err))
		return err
	}
	slog.Info("Server stopped")
	return nil
}
