package cli

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"
	"sfmconv/internal/pipeline"
	"sfmconv/internal/proc"
	"sfmconv/pkg/colmap"
)

var viewCmd = &cobra.Command{
	Use:   "view [output_dir]",
	Short: "Open a reconstruction in the colmap GUI",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	layout := pipeline.NewLayout(outputDirArg(args))
	if err := requireDir(layout.Root); err != nil {
		return err
	}

	bin, err := proc.Require(cfg.ColmapBinary)
	if err != nil {
		return err
	}

	opts := guiOptions(layout)
	fmt.Fprintf(cmd.OutOrStdout(), "Opening %s in colmap gui...\n", layout.Model)
	if err := exec.Command(bin, opts.Args()...).Start(); err != nil {
		return fmt.Errorf("start colmap gui: %w", err)
	}
	return nil
}

// guiOptions points the gui at the run's image dir, preferring the one
// recorded in run.json since image-folder inputs live outside the layout.
func guiOptions(layout pipeline.Layout) colmap.GUIOptions {
	opts := colmap.GUIOptions{
		DatabasePath: layout.Database,
		ImagePath:    layout.Images,
		ImportPath:   layout.Model,
	}
	if m, err := pipeline.ReadManifest(layout.Manifest); err == nil && m.ImageDir != "" {
		opts.ImagePath = m.ImageDir
	}
	return opts
}
