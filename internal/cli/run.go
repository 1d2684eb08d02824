package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"sfmconv/internal/ffmpeg"
	"sfmconv/internal/gpu"
	"sfmconv/internal/metrics"
	"sfmconv/internal/pipeline"
	"sfmconv/internal/proc"
	"sfmconv/internal/tracing"
	"sfmconv/internal/ui"
	"sfmconv/pkg/colmap"
	"sfmconv/pkg/hloc"
	"sfmconv/pkg/logger"
	"sfmconv/pkg/models"
)

var runFlags struct {
	data             string
	outputDir        string
	sfmTool          string
	matchingMethod   string
	featureType      string
	matcherType      string
	cameraModel      string
	fps              int
	gpu              string
	verbose          bool
	refineIntrinsics bool
	vocabTree        string
	numMatched       int
	metricsFile      string
}

var runCmd = &cobra.Command{
	Use:   "run [data]",
	Short: "Process a video or image folder into a colmap reconstruction",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.data, "data", "", "Path to a folder of images or a video file (.mp4, .mov, .avi, .mkv)")
	f.StringVar(&runFlags.outputDir, "output-dir", cfg.OutputDir, "Where to save colmap results")
	f.StringVar(&runFlags.sfmTool, "sfm-tool", cfg.SfMTool, "SfM tool to use: colmap (SIFT) or hloc (learned features)")
	f.StringVar(&runFlags.matchingMethod, "matching-method", cfg.MatchingMethod, "Feature matching strategy: exhaustive, sequential or vocab_tree")
	f.StringVar(&runFlags.featureType, "feature-type", cfg.FeatureType, "hloc feature extractor conf")
	f.StringVar(&runFlags.matcherType, "matcher-type", cfg.MatcherType, "hloc matcher conf")
	f.StringVar(&runFlags.cameraModel, "camera-model", cfg.CameraModel, "Camera model: perspective, fisheye, pinhole or simple_pinhole")
	f.IntVar(&runFlags.fps, "fps", cfg.FPS, "Frames per second to sample when the input is a video")
	f.StringVar(&runFlags.gpu, "gpu", cfg.GPU, "Use the GPU for colmap SIFT: auto, true or false")
	f.Lookup("gpu").NoOptDefVal = "true"
	f.BoolVar(&runFlags.verbose, "verbose", cfg.Verbose, "Stream external tool output and log at debug level")
	f.BoolVar(&runFlags.refineIntrinsics, "refine-intrinsics", cfg.RefineIntrinsics, "Run bundle adjustment refining the principal point (colmap)")
	f.StringVar(&runFlags.vocabTree, "vocab-tree", cfg.VocabTreePath, "Vocabulary tree file for vocab_tree matching (downloaded when empty)")
	f.IntVar(&runFlags.numMatched, "num-matched", cfg.NumMatched, "Retrieval pairs per image for non-exhaustive hloc matching")
	f.StringVar(&runFlags.metricsFile, "metrics-file", cfg.MetricsFile, "Write prometheus textfile metrics here after the run")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	data := runFlags.data
	if data == "" && len(args) > 0 {
		data = args[0]
	}
	if data == "" {
		return fmt.Errorf("an input path is required (--data or first argument)")
	}

	level := cfg.LogLevel
	if runFlags.verbose {
		level = "debug"
	}
	log, err := logger.New(level)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else if tp != nil {
		defer tp.Shutdown(context.WithoutCancel(ctx))
	}

	runner := proc.NewExecRunner(runFlags.verbose, log)
	useGPU, err := gpu.Resolve(ctx, runFlags.gpu, runner)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Data:             data,
		OutputDir:        runFlags.outputDir,
		Tool:             pipeline.Tool(runFlags.sfmTool),
		MatchingMethod:   pipeline.MatchingMethod(runFlags.matchingMethod),
		FeatureType:      runFlags.featureType,
		MatcherType:      runFlags.matcherType,
		CameraModel:      runFlags.cameraModel,
		FPS:              runFlags.fps,
		GPU:              useGPU,
		Verbose:          runFlags.verbose,
		RefineIntrinsics: runFlags.refineIntrinsics,
		VocabTreePath:    runFlags.vocabTree,
		NumMatched:       runFlags.numMatched,
	}

	converter := newConverter(runner, log)

	out := cmd.OutOrStdout()
	console := ui.NewConsole(out)
	console.Heading("%s", banner(opts))

	var manifest *models.RunManifest
	runPipeline := func(ctx context.Context) error {
		m, err := converter.Run(ctx, opts)
		manifest = m
		return err
	}
	if opts.Verbose {
		err = runPipeline(ctx)
	} else {
		err = ui.RunWithSpinner(ctx, out, "Reconstructing...", runPipeline)
	}

	if mErr := metrics.WriteTextfile(runFlags.metricsFile); mErr != nil {
		log.Warn("could not write metrics", zap.Error(mErr))
	}
	if err != nil {
		console.Error("SfM failed")
		return err
	}

	printResult(console, manifest)
	return nil
}

func newConverter(runner proc.Runner, log *zap.Logger) *pipeline.Converter {
	cacheDir, err := pipeline.DefaultCacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), "sfmconv")
		log.Debug("no user cache dir, caching downloads in temp", zap.String("dir", cacheDir), zap.Error(err))
	}
	vocab := &pipeline.VocabTree{URL: cfg.VocabTreeURL, CacheDir: cacheDir, Logger: log}

	extractor := ffmpeg.NewExtractor(cfg.FFmpegBinary, cfg.FFprobeBinary, runner, log)
	pipelines := []pipeline.Reconstructor{
		pipeline.NewColmapPipeline(colmap.NewClient(cfg.ColmapBinary, runner), vocab, log),
		pipeline.NewHlocPipeline(hloc.NewClient(cfg.PythonBinary, runner), log),
	}
	return pipeline.NewConverter(extractor, pipelines, log)
}

func banner(opts pipeline.Options) string {
	switch opts.Tool {
	case pipeline.ToolColmap:
		return "Running COLMAP pipeline..."
	case pipeline.ToolHloc:
		return fmt.Sprintf("Running HLOC pipeline (%s + %s)...", opts.FeatureType, opts.MatcherType)
	}
	return fmt.Sprintf("Running %s pipeline...", opts.Tool)
}

func printResult(console *ui.Console, m *models.RunManifest) {
	console.Success("SfM finished. Results saved in %s", m.OutputDir)
	console.Path("Database", m.DatabasePath)
	console.Path("Sparse reconstruction", m.SparseDir)
	if m.Model != nil {
		console.Path("Registered images", fmt.Sprintf("%d", m.Model.RegisteredImages))
		console.Path("3D points", fmt.Sprintf("%d", m.Model.Points3D))
	}
}
