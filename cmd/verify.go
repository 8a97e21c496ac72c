package cmd

import (
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [image-file]",
	Short: "Run one attendance verification attempt",
	Long: `Run a single attendance attempt: capture a probe image, match it
against the gallery, and record the match in the attendance ledger.

The probe comes from the image file argument when given, otherwise from
the camera configured via CAMERA_URL.

Exits 0 when attendance was recorded, 1 otherwise.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	g, err := loadGallery(cfg)
	if err != nil {
		return err
	}

	v, err := buildVerifier(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	var source camera.Source
	if len(args) == 1 {
		source = camera.NewFileSource(args[0])
	} else {
		source = cameraSource(cfg)
	}
	if source == nil {
		return fmt.Errorf("no image file given and CAMERA_URL is not set")
	}

	s := session.New(g, v, openLedger(cfg), camera.NewHandle(source), session.Options{
		VerifyTimeout: cfg.Verifier.Timeout,
	})
	outcome := s.Run(cmd.Context())

	switch outcome.State {
	case session.StateRecorded:
		name := outcome.DisplayName
		if name == "" {
			name = outcome.Identity
		}
		fmt.Printf("Recorded: %s at %s (distance %.4f)\n",
			name, outcome.RecordedAt.Format("15:04:05"), outcome.Distance)
		return nil
	case session.StateNoMatch:
		fmt.Println("No match found in gallery")
	default:
		fmt.Printf("Verification failed: %s\n", outcome.Message)
	}

	// Unrecorded attempts exit non-zero so kiosk scripts can react.
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	os.Exit(1)
	return nil
}
