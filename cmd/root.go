package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/embedcache"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/verifier"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Face recognition attendance tracking",
	Long: `Face Attendance records who showed up and when. A probe image from a
camera or file is matched against a gallery of reference faces using an
external face verification service, and accepted matches are written to
a JSON attendance ledger.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadGallery loads the reference gallery from the configured directory.
func loadGallery(cfg *config.Config) (*gallery.Gallery, error) {
	if cfg.Gallery.Dir == "" {
		return nil, fmt.Errorf("GALLERY_DIR environment variable is required")
	}
	g, err := gallery.Load(cfg.Gallery.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading gallery: %w", err)
	}
	return g, nil
}

// buildVerifier picks the verification backend: the embedding service with a
// cache when EMBEDDING_URL is set, the DeepFace verify endpoint otherwise.
func buildVerifier(ctx context.Context, cfg *config.Config) (verifier.Verifier, error) {
	if cfg.Verifier.EmbeddingURL != "" {
		client := verifier.NewEmbeddingClient(cfg.Verifier.EmbeddingURL, cfg.Verifier.Timeout)
		cache, err := embedcache.GetCache(ctx)
		if err != nil {
			return nil, fmt.Errorf("initializing embedding cache: %w", err)
		}
		return verifier.NewEmbeddingVerifier(client, cache, cfg.Verifier.Threshold), nil
	}
	if cfg.Verifier.URL == "" {
		return nil, fmt.Errorf("VERIFIER_URL or EMBEDDING_URL environment variable is required")
	}
	return verifier.NewDeepFaceClient(cfg.Verifier.URL, cfg.Verifier.Timeout), nil
}

// cameraSource returns the configured kiosk camera, or nil when none is set.
func cameraSource(cfg *config.Config) camera.Source {
	if cfg.Camera.SnapshotURL == "" {
		return nil
	}
	return camera.NewHTTPCamera(cfg.Camera.SnapshotURL)
}

func openLedger(cfg *config.Config) *ledger.Ledger {
	return ledger.Open(cfg.Ledger.Path)
}
