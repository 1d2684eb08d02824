package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sfmconv/internal/colmapdb"
	"sfmconv/internal/pipeline"
)

var (
	inspectImages bool
	inspectLimit  int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [output_dir]",
	Short: "Summarize the database and sparse model of a finished run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectImages, "images", false, "List registered images with their keypoint counts")
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 50, "Maximum images to list (0 for all)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	layout := pipeline.NewLayout(outputDirArg(args))
	out := cmd.OutOrStdout()

	if m, err := pipeline.ReadManifest(layout.Manifest); err == nil {
		fmt.Fprintf(out, "Run %s (%s, %s input) finished %s\n\n",
			m.ID, m.Options.SfMTool, m.InputKind, m.FinishedAt.Local().Format("2006-01-02 15:04"))
	}

	store, err := colmapdb.New(layout.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := store.Summary()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "DATABASE\t%s\n", layout.Database)
	fmt.Fprintf(w, "Cameras\t%d\n", sum.Cameras)
	fmt.Fprintf(w, "Images\t%d\n", sum.Images)
	fmt.Fprintf(w, "Keypoints\t%d\n", sum.Keypoints)
	fmt.Fprintf(w, "Matched pairs\t%d\n", sum.MatchedPairs)
	fmt.Fprintf(w, "Verified pairs\t%d\n", sum.VerifiedPairs)

	model, err := colmapdb.ReadModelSummary(layout.Model)
	switch {
	case errors.Is(err, colmapdb.ErrNoModel):
		fmt.Fprintf(w, "MODEL\t%s (missing)\n", layout.Model)
	case err != nil:
		return err
	default:
		fmt.Fprintf(w, "MODEL\t%s (%s)\n", layout.Model, model.Format)
		fmt.Fprintf(w, "Registered images\t%d\n", model.RegisteredImages)
		fmt.Fprintf(w, "3D points\t%d\n", model.Points3D)
	}
	w.Flush()

	if err := printCameras(out, store); err != nil {
		return err
	}
	if inspectImages {
		return printImages(out, store, inspectLimit)
	}
	return nil
}

func printCameras(out io.Writer, store *colmapdb.Store) error {
	cameras, err := store.ListCameras()
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CAMERA\tMODEL\tWIDTH\tHEIGHT")
	for _, c := range cameras {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", c.ID, c.Model, c.Width, c.Height)
	}
	return w.Flush()
}

func printImages(out io.Writer, store *colmapdb.Store, limit int) error {
	images, err := store.ListImages(limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tCAMERA\tKEYPOINTS\tNAME")
	for _, img := range images {
		fmt.Fprintf(w, "%d\t%d\t%d\t%.40s\n", img.ID, img.CameraID, img.Keypoints, img.Name)
	}
	return w.Flush()
}

// outputDirArg picks the output dir from the first argument, falling back to
// the configured default.
func outputDirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.OutputDir
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output dir %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output dir %s is not a directory", path)
	}
	return nil
}
