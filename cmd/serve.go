package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/embedcache"
	"github.com/kozaktomas/face-attendance/internal/embedcache/postgres"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance web server",
	Long: `Start the Face Attendance web server.
The server exposes the verification endpoint for kiosks plus read-only
attendance and report endpoints for dashboards.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// initEmbeddingBackend wires the PostgreSQL embedding cache when a database
// is configured; otherwise the in-memory cache is used.
func initEmbeddingBackend(cfg *config.Config) error {
	if cfg.Database.URL == "" {
		fmt.Println("Using in-memory embedding cache")
		return nil
	}

	fmt.Println("Connecting to PostgreSQL database...")
	if err := postgres.Initialize(&cfg.Database, cfg.Verifier.EmbeddingDim); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	repo := postgres.NewEmbeddingRepository(postgres.GetGlobalPool())
	embedcache.RegisterPostgresBackend(func() embedcache.Cache { return repo })
	fmt.Println("Using PostgreSQL embedding cache")
	return nil
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	g, err := loadGallery(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded gallery with %d identities from %s\n", g.Len(), g.Dir())

	if err := initEmbeddingBackend(cfg); err != nil {
		return err
	}

	v, err := buildVerifier(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	cam := cameraSource(cfg)
	if cam == nil {
		fmt.Println("No camera configured, verification requires uploaded images")
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, g, v, openLedger(cfg), cam)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
