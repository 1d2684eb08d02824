// Package hloc drives the hierarchical-localization toolbox through its
// python module entry points.
package hloc

import (
	"context"
	"slices"
	"strconv"
)

type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// FeatureConfs are the extract_features configurations hloc ships.
var FeatureConfs = []string{
	"sift",
	"superpoint_aachen",
	"superpoint_max",
	"superpoint_inloc",
	"r2d2",
	"d2net-ss",
	"sosnet",
	"disk",
}

// MatcherConfs are the match_features configurations hloc ships.
var MatcherConfs = []string{
	"superglue",
	"superglue-fast",
	"NN-superpoint",
	"NN-ratio",
	"NN-mutual",
	"adalam",
	"disk+lightglue",
	"superpoint+lightglue",
}

// RetrievalConf is the global descriptor used for retrieval-based pairing.
const RetrievalConf = "netvlad"

func KnownFeature(name string) bool { return slices.Contains(FeatureConfs, name) }

func KnownMatcher(name string) bool { return slices.Contains(MatcherConfs, name) }

// Client invokes `python -m hloc.<module>`.
type Client struct {
	Python string
	Runner Runner
}

func NewClient(python string, runner Runner) *Client {
	return &Client{Python: python, Runner: runner}
}

func (c *Client) module(ctx context.Context, name string, args ...string) error {
	full := append([]string{"-m", "hloc." + name}, args...)
	return c.Runner.Run(ctx, c.Python, full...)
}

type ExtractOptions struct {
	Conf        string
	ImageDir    string
	ExportDir   string
	ImageList   string
	FeaturePath string
}

func (o ExtractOptions) Args() []string {
	args := []string{
		"--conf", o.Conf,
		"--image_dir", o.ImageDir,
		"--export_dir", o.ExportDir,
	}
	if o.ImageList != "" {
		args = append(args, "--image_list", o.ImageList)
	}
	if o.FeaturePath != "" {
		args = append(args, "--feature_path", o.FeaturePath)
	}
	return args
}

func (c *Client) ExtractFeatures(ctx context.Context, opts ExtractOptions) error {
	return c.module(ctx, "extract_features", opts.Args()...)
}

func (c *Client) PairsFromExhaustive(ctx context.Context, output, imageList string) error {
	return c.module(ctx, "pairs_from_exhaustive", "--output", output, "--image_list", imageList)
}

func (c *Client) PairsFromRetrieval(ctx context.Context, descriptors, output string, numMatched int) error {
	return c.module(ctx, "pairs_from_retrieval",
		"--descriptors", descriptors,
		"--output", output,
		"--num_matched", strconv.Itoa(numMatched),
	)
}

type MatchOptions struct {
	Conf      string
	Pairs     string
	Features  string
	Matches   string
	ExportDir string
}

func (o MatchOptions) Args() []string {
	return []string{
		"--conf", o.Conf,
		"--pairs", o.Pairs,
		"--features", o.Features,
		"--matches", o.Matches,
		"--export_dir", o.ExportDir,
	}
}

func (c *Client) MatchFeatures(ctx context.Context, opts MatchOptions) error {
	return c.module(ctx, "match_features", opts.Args()...)
}

type ReconstructionOptions struct {
	SfMDir      string
	ImageDir    string
	Pairs       string
	Features    string
	Matches     string
	CameraModel string
	Verbose     bool
}

func (o ReconstructionOptions) Args() []string {
	args := []string{
		"--sfm_dir", o.SfMDir,
		"--image_dir", o.ImageDir,
		"--pairs", o.Pairs,
		"--features", o.Features,
		"--matches", o.Matches,
		"--camera_mode", "SINGLE",
		"--image_options", "camera_model=" + o.CameraModel,
	}
	if o.Verbose {
		args = append(args, "--verbose")
	}
	return args
}

func (c *Client) Reconstruction(ctx context.Context, opts ReconstructionOptions) error {
	return c.module(ctx, "reconstruction", opts.Args()...)
}
