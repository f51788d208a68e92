package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ostrand/zmapd/internal/api"
	"github.com/ostrand/zmapd/internal/logging"
	"github.com/ostrand/zmapd/internal/metrics"
	"github.com/ostrand/zmapd/internal/zmap"
)

const serveShutdownTimeout = 30 * time.Second

// Serve command flags.
var (
	serveHost string
	servePort int
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the zmapd API server",
	Long: `Start the zmapd REST API server in the foreground.

The server exposes synchronous scan execution, engine introspection,
and blocklist management endpoints. It runs until interrupted.`,
	Example: `  zmapd serve
  zmapd serve --host 0.0.0.0 --port 8080
  zmapd serve --config /etc/zmapd/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Override listen address")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override listen port")
}

// runServe handles the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Override API configuration from command line flags
	if serveHost != "" {
		cfg.API.ListenAddr = serveHost
	}
	if servePort > 0 {
		cfg.API.Port = servePort
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Printf("Starting zmapd API server %s\n", getVersion())
	logger.Info("Starting zmapd API server",
		"version", version,
		"commit", commit,
		"build_time", buildTime,
		"address", cfg.GetAPIAddress(),
		"engine", cfg.Engine.Binary)

	m := metrics.New()
	engine := zmap.New(cfg.Engine, logger, m)
	apiServer := api.New(cfg, engine, m)

	serverCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := apiServer.Start(serverCtx); err != nil {
			serverErrChan <- err
		}
	}()

	fmt.Printf("API server listening on http://%s\n", cfg.GetAPIAddress())
	fmt.Printf("Health check: http://%s/api/v1/health\n", cfg.GetAPIAddress())
	fmt.Printf("Metrics: http://%s/api/v1/metrics\n", cfg.GetAPIAddress())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		fmt.Printf("\nReceived %s signal, shutting down gracefully...\n", sig.String())

	case err := <-serverErrChan:
		logger.Error("API server error", "error", err)
		return fmt.Errorf("API server error: %w", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer shutdownCancel()

	shutdownComplete := make(chan error, 1)
	go func() {
		shutdownComplete <- apiServer.Stop()
	}()

	select {
	case err := <-shutdownComplete:
		if err != nil {
			logger.Error("Server shutdown error", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		fmt.Println("Server stopped successfully")

	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout exceeded, forcing stop")
		return fmt.Errorf("shutdown timeout exceeded")
	}

	return nil
}
