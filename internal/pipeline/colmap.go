package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"sfmconv/internal/proc"
	"sfmconv/pkg/colmap"
)

// ErrNoReconstruction is returned when the mapper finishes without writing
// a model to sparse/0.
var ErrNoReconstruction = errors.New("mapper produced no reconstruction")

// ColmapPipeline runs the SIFT-based colmap workflow.
type ColmapPipeline struct {
	client *colmap.Client
	vocab  *VocabTree
	logger *zap.Logger
}

func NewColmapPipeline(client *colmap.Client, vocab *VocabTree, logger *zap.Logger) *ColmapPipeline {
	return &ColmapPipeline{client: client, vocab: vocab, logger: logger}
}

func (p *ColmapPipeline) Tool() Tool { return ToolColmap }

func (p *ColmapPipeline) Check() error {
	_, err := proc.Require(p.client.Binary)
	return err
}

func (p *ColmapPipeline) Reconstruct(ctx context.Context, job Job) error {
	if err := p.Check(); err != nil {
		return err
	}

	opts := job.Options
	model, err := colmap.CameraModel(opts.CameraModel)
	if err != nil {
		return err
	}

	p.logger.Info("colmap: extracting features", zap.String("camera_model", model), zap.Bool("gpu", opts.GPU))
	if err := p.client.FeatureExtractor(ctx, colmap.FeatureExtractorOptions{
		DatabasePath: job.Layout.Database,
		ImagePath:    job.ImageDir,
		CameraModel:  model,
		SingleCamera: true,
		UseGPU:       opts.GPU,
	}); err != nil {
		return err
	}

	matcher := colmap.MatcherOptions{
		Method:       string(opts.MatchingMethod),
		DatabasePath: job.Layout.Database,
		UseGPU:       opts.GPU,
	}
	if opts.MatchingMethod == MatchVocabTree {
		path, err := p.vocab.Path(ctx, opts.VocabTreePath)
		if err != nil {
			return fmt.Errorf("vocab tree: %w", err)
		}
		matcher.VocabTreePath = path
	}
	p.logger.Info("colmap: matching features", zap.String("method", matcher.Method))
	if err := p.client.Matcher(ctx, matcher); err != nil {
		return err
	}

	version := p.client.Version(ctx)
	p.logger.Info("colmap: running mapper", zap.String("colmap_version", version.String()))
	if err := p.client.Mapper(ctx, colmap.MapperOptions{
		DatabasePath: job.Layout.Database,
		ImagePath:    job.ImageDir,
		OutputPath:   job.Layout.Sparse,
		Version:      version,
	}); err != nil {
		return err
	}

	if !exists(job.Layout.Model) {
		return ErrNoReconstruction
	}

	if opts.RefineIntrinsics {
		p.logger.Info("colmap: refining intrinsics")
		if err := p.client.BundleAdjuster(ctx, colmap.BundleAdjusterOptions{
			InputPath:            job.Layout.Model,
			OutputPath:           job.Layout.Model,
			RefinePrincipalPoint: true,
		}); err != nil {
			return err
		}
	}
	return nil
}
