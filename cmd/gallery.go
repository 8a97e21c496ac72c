package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect the reference gallery",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered identities",
	RunE:  runGalleryList,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryListCmd)
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	g, err := loadGallery(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tNAME\tFILE")
	for _, e := range g.Entries() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Identity, e.DisplayName, e.Path)
	}
	w.Flush()

	fmt.Printf("\n%d identities in %s\n", g.Len(), g.Dir())
	return nil
}
