package cmd

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/verifier"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var galleryCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every gallery image contains a detectable face",
	Long: `Check the reference gallery against the embedding service.

Every image is sent to the embedding backend; images where no face can
be detected are reported so they can be replaced. With a configured
embedding cache this also warms the cache for later verification.`,
	RunE: runGalleryCheck,
}

func init() {
	galleryCmd.AddCommand(galleryCheckCmd)
	galleryCheckCmd.Flags().Int("concurrency", 4, "Number of parallel embedding requests")
}

func runGalleryCheck(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Verifier.EmbeddingURL == "" {
		return fmt.Errorf("EMBEDDING_URL environment variable is required for gallery check")
	}

	g, err := loadGallery(cfg)
	if err != nil {
		return err
	}
	if g.Len() == 0 {
		fmt.Println("Gallery is empty.")
		return nil
	}

	client := verifier.NewEmbeddingClient(cfg.Verifier.EmbeddingURL, cfg.Verifier.Timeout)
	concurrency := mustGetInt(cmd, "concurrency")

	bar := progressbar.NewOptions(g.Len(),
		progressbar.OptionSetDescription("Checking gallery"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	type problem struct {
		entry gallery.Entry
		err   error
	}

	var failed int64
	problems := make([]*problem, g.Len())
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, entry := range g.Entries() {
		wg.Add(1)
		go func(i int, entry gallery.Entry) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			_, _, err := client.ComputeFaceEmbedding(cmd.Context(), entry.Image)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				problems[i] = &problem{entry: entry, err: err}
			}

			bar.Add(1)
		}(i, entry)
	}

	wg.Wait()
	fmt.Println()

	if failed == 0 {
		fmt.Printf("All %d gallery images have a detectable face.\n", g.Len())
		return nil
	}

	fmt.Printf("%d of %d gallery images failed:\n", failed, g.Len())
	for _, p := range problems {
		if p == nil {
			continue
		}
		if errors.Is(p.err, verifier.ErrNoFaceDetected) {
			fmt.Printf("  %s: no face detected\n", p.entry.Path)
		} else {
			fmt.Printf("  %s: %v\n", p.entry.Path, p.err)
		}
	}
	return fmt.Errorf("%d gallery images are unusable", failed)
}
