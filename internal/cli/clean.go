package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"sfmconv/internal/pipeline"
	"sfmconv/pkg/models"
)

// ErrNotExtracted is returned when asked to clean frames a user supplied.
var ErrNotExtracted = errors.New("images were not extracted by sfmconv")

var cleanCmd = &cobra.Command{
	Use:   "clean [output_dir]",
	Short: "Remove frames extracted from a video once reconstruction is done",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	layout := pipeline.NewLayout(outputDirArg(args))
	m, err := pipeline.ReadManifest(layout.Manifest)
	if err != nil {
		return err
	}

	if m.InputKind != models.InputVideo || !sameDir(m.ImageDir, layout.Images) {
		return fmt.Errorf("%w: refusing to delete %s", ErrNotExtracted, m.ImageDir)
	}

	frames, err := pipeline.ListImages(layout.Images)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean. Frames were already removed.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := os.RemoveAll(layout.Images); err != nil {
		return fmt.Errorf("remove %s: %w", layout.Images, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d extracted frames from %s\n", len(frames), layout.Images)
	return nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
