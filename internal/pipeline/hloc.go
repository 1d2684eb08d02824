package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"sfmconv/internal/proc"
	"sfmconv/pkg/colmap"
	"sfmconv/pkg/hloc"
)

// ErrNoImages is returned when the image dir holds no usable images.
var ErrNoImages = errors.New("no images found")

// HlocPipeline runs learned features and matchers through hloc, with
// pycolmap as the reconstruction backend.
type HlocPipeline struct {
	client *hloc.Client
	logger *zap.Logger
}

func NewHlocPipeline(client *hloc.Client, logger *zap.Logger) *HlocPipeline {
	return &HlocPipeline{client: client, logger: logger}
}

func (p *HlocPipeline) Tool() Tool { return ToolHloc }

func (p *HlocPipeline) Check() error {
	_, err := proc.Require(p.client.Python)
	return err
}

// hlocFiles are the intermediate artifacts hloc writes under the output dir.
type hlocFiles struct {
	imageList  string
	features   string
	matches    string
	pairs      string
	globalFeat string
}

func newHlocFiles(root string, method MatchingMethod) hlocFiles {
	pairs := "pairs-netvlad.txt"
	if method == MatchExhaustive {
		pairs = "pairs-exhaustive.txt"
	}
	return hlocFiles{
		imageList:  filepath.Join(root, "image-list.txt"),
		features:   filepath.Join(root, "features.h5"),
		matches:    filepath.Join(root, "matches.h5"),
		pairs:      filepath.Join(root, pairs),
		globalFeat: filepath.Join(root, "global-feats-"+hloc.RetrievalConf+".h5"),
	}
}

func (p *HlocPipeline) Reconstruct(ctx context.Context, job Job) error {
	if err := p.Check(); err != nil {
		return err
	}

	opts := job.Options
	model, err := colmap.CameraModel(opts.CameraModel)
	if err != nil {
		return err
	}

	refs, err := ListImages(job.ImageDir)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("%w in %s", ErrNoImages, job.ImageDir)
	}

	files := newHlocFiles(job.Layout.Root, opts.MatchingMethod)
	if err := os.WriteFile(files.imageList, []byte(strings.Join(refs, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("write image list: %w", err)
	}

	p.logger.Info("hloc: extracting features", zap.String("conf", opts.FeatureType), zap.Int("images", len(refs)))
	if err := p.client.ExtractFeatures(ctx, hloc.ExtractOptions{
		Conf:        opts.FeatureType,
		ImageDir:    job.ImageDir,
		ExportDir:   job.Layout.Root,
		ImageList:   files.imageList,
		FeaturePath: files.features,
	}); err != nil {
		return err
	}

	if err := p.pairs(ctx, job, files, len(refs)); err != nil {
		return err
	}

	p.logger.Info("hloc: matching features", zap.String("conf", opts.MatcherType))
	if err := p.client.MatchFeatures(ctx, hloc.MatchOptions{
		Conf:      opts.MatcherType,
		Pairs:     files.pairs,
		Features:  files.features,
		Matches:   files.matches,
		ExportDir: job.Layout.Root,
	}); err != nil {
		return err
	}

	p.logger.Info("hloc: reconstructing", zap.String("camera_model", model))
	if err := p.client.Reconstruction(ctx, hloc.ReconstructionOptions{
		SfMDir:      job.Layout.Model,
		ImageDir:    job.ImageDir,
		Pairs:       files.pairs,
		Features:    files.features,
		Matches:     files.matches,
		CameraModel: model,
		Verbose:     opts.Verbose,
	}); err != nil {
		return err
	}

	return relocateDatabase(job.Layout)
}

func (p *HlocPipeline) pairs(ctx context.Context, job Job, files hlocFiles, numImages int) error {
	if job.Options.MatchingMethod == MatchExhaustive {
		p.logger.Info("hloc: exhaustive pairs")
		return p.client.PairsFromExhaustive(ctx, files.pairs, files.imageList)
	}

	p.logger.Info("hloc: extracting global descriptors", zap.String("conf", hloc.RetrievalConf))
	if err := p.client.ExtractFeatures(ctx, hloc.ExtractOptions{
		Conf:        hloc.RetrievalConf,
		ImageDir:    job.ImageDir,
		ExportDir:   job.Layout.Root,
		ImageList:   files.imageList,
		FeaturePath: files.globalFeat,
	}); err != nil {
		return err
	}

	numMatched := min(numImages, job.Options.NumMatched)
	p.logger.Info("hloc: retrieval pairs", zap.Int("num_matched", numMatched))
	return p.client.PairsFromRetrieval(ctx, files.globalFeat, files.pairs, numMatched)
}

// relocateDatabase moves the database hloc leaves next to the model to
// <output_dir>/database.db.
func relocateDatabase(layout Layout) error {
	src := filepath.Join(layout.Model, "database.db")
	if !exists(src) {
		return nil
	}
	if err := os.Rename(src, layout.Database); err != nil {
		return fmt.Errorf("move database: %w", err)
	}
	return nil
}
