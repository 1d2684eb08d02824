package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"sfmconv/internal/colmapdb"
	"sfmconv/internal/metrics"
	"sfmconv/pkg/models"
)

// ErrNotImageDir is returned when the input is neither a video nor a directory.
var ErrNotImageDir = errors.New("input is neither a video file nor an image directory")

// Converter turns a video or image directory into a sparse reconstruction by
// dispatching to one registered Reconstructor.
type Converter struct {
	extractor FrameExtractor
	pipelines map[Tool]Reconstructor
	logger    *zap.Logger
}

func NewConverter(extractor FrameExtractor, pipelines []Reconstructor, logger *zap.Logger) *Converter {
	byTool := make(map[Tool]Reconstructor, len(pipelines))
	for _, p := range pipelines {
		byTool[p.Tool()] = p
	}
	return &Converter{extractor: extractor, pipelines: byTool, logger: logger}
}

func (c *Converter) Run(ctx context.Context, opts Options) (*models.RunManifest, error) {
	ctx, span := otel.Tracer("pipeline").Start(ctx, "Converter.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("sfm.tool", string(opts.Tool)),
		attribute.String("sfm.input", opts.Data),
	)

	m, err := c.run(ctx, opts)
	status := "completed"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RunsTotal.WithLabelValues(string(opts.Tool), status).Inc()
	return m, err
}

func (c *Converter) run(ctx context.Context, opts Options) (*models.RunManifest, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	layout := NewLayout(opts.OutputDir)
	if err := layout.Ensure(); err != nil {
		return nil, err
	}

	m := &models.RunManifest{
		ID:           uuid.NewString(),
		StartedAt:    time.Now().UTC(),
		Input:        opts.Data,
		OutputDir:    layout.Root,
		DatabasePath: layout.Database,
		SparseDir:    layout.Model,
		Options: models.RunOptions{
			SfMTool:          string(opts.Tool),
			MatchingMethod:   string(opts.MatchingMethod),
			CameraModel:      opts.CameraModel,
			FPS:              opts.FPS,
			GPU:              opts.GPU,
			RefineIntrinsics: opts.RefineIntrinsics,
		},
	}
	if opts.Tool == ToolHloc {
		m.Options.FeatureType = opts.FeatureType
		m.Options.MatcherType = opts.MatcherType
	}
	log := c.logger.With(zap.String("run_id", m.ID))

	p, ok := c.pipelines[opts.Tool]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, opts.Tool)
	}
	if err := p.Check(); err != nil {
		return nil, fmt.Errorf("%s pipeline: %w", opts.Tool, err)
	}

	imageDir := opts.Data
	if IsVideo(opts.Data) {
		m.InputKind = models.InputVideo
		imageDir = layout.Images
		err := c.stage(ctx, m, "extract_frames", func(ctx context.Context) error {
			res, err := c.extractor.ExtractFrames(ctx, opts.Data, layout.Images, opts.FPS)
			if err != nil {
				return err
			}
			m.FrameCount = res.FrameCount
			m.VideoDuration = res.VideoDuration
			metrics.FramesExtracted.Set(float64(res.FrameCount))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("extract frames: %w", err)
		}
	} else {
		info, err := os.Stat(opts.Data)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrNotImageDir, opts.Data)
		}
		m.InputKind = models.InputImages
	}
	m.ImageDir = imageDir

	log.Info("running reconstruction",
		zap.String("tool", string(opts.Tool)),
		zap.String("image_dir", imageDir),
		zap.String("matching", string(opts.MatchingMethod)),
	)
	job := Job{ImageDir: imageDir, Layout: layout, Options: opts}
	if err := c.stage(ctx, m, "reconstruct", func(ctx context.Context) error {
		return p.Reconstruct(ctx, job)
	}); err != nil {
		return nil, fmt.Errorf("%s pipeline: %w", opts.Tool, err)
	}

	c.summarize(m, layout, log)
	m.FinishedAt = time.Now().UTC()

	if err := WriteManifest(layout.Manifest, m); err != nil {
		return nil, err
	}

	log.Info("sfm finished",
		zap.String("database", layout.Database),
		zap.String("sparse", layout.Model),
	)
	return m, nil
}

// summarize attaches database and model statistics. Missing artifacts are
// logged, not fatal: the external tool already reported success.
func (c *Converter) summarize(m *models.RunManifest, layout Layout, log *zap.Logger) {
	store, err := colmapdb.New(layout.Database)
	if err != nil {
		log.Warn("could not open database", zap.Error(err))
	} else {
		defer store.Close()
		if sum, err := store.Summary(); err != nil {
			log.Warn("could not summarize database", zap.Error(err))
		} else {
			m.Database = sum
		}
	}

	model, err := colmapdb.ReadModelSummary(layout.Model)
	if err != nil {
		log.Warn("could not read sparse model", zap.Error(err))
		return
	}
	m.Model = model
	metrics.RegisteredImages.Set(float64(model.RegisteredImages))
	metrics.Points3D.Set(float64(model.Points3D))
}

func (c *Converter) stage(ctx context.Context, m *models.RunManifest, name string, fn func(context.Context) error) error {
	ctx, span := otel.Tracer("pipeline").Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	m.Stages = append(m.Stages, models.StageTiming{Stage: name, Duration: elapsed})
	metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
