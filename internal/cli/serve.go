package cli

import (
	"context"
	"errors"
	nethttp "net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	httpapi "go-incident-analysis-ui/internal/http"
	"go-incident-analysis-ui/internal/logger"
)

func newServeCommand(v *viper.Viper, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(commandContext(cmd), v, version)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", ":8080", "HTTP listen address")
	flags.String("default-scenario", "gc_pause", "Scenario shown until one is selected")
	flags.String("selection-backend", "memory", "Where the selected scenario is kept (memory, sqlite, redis)")
	flags.String("redis-addr", "127.0.0.1:6379", "Redis address for the redis selection backend")
	bindFlags(v, cmd, map[string]string{
		"listen":            "app_listen_addr",
		"default-scenario":  "app_default_scenario",
		"selection-backend": "app_selection_backend",
		"redis-addr":        "app_redis_addr",
	})
	return cmd
}

func runServe(ctx context.Context, v *viper.Viper, version string) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	srv, err := httpapi.NewServer(cfg, log)
	if err != nil {
		log.Error("failed to initialize server", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server",
			zap.String("version", version),
			zap.String("addr", cfg.ListenAddr),
			zap.String("source", cfg.SnapshotSource),
			zap.String("selection_backend", cfg.SelectionBackend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
