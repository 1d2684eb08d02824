package colmap

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Runner is the subset of a process runner the client needs.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Client wraps the colmap command-line tool.
type Client struct {
	Binary string
	Runner Runner
}

func NewClient(binary string, runner Runner) *Client {
	return &Client{Binary: binary, Runner: runner}
}

// Version is a colmap release number.
type Version struct {
	Major int
	Minor int
	Patch int
}

// DefaultVersion is assumed when `colmap -h` cannot be parsed.
var DefaultVersion = Version{Major: 3, Minor: 8}

func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

var versionRe = regexp.MustCompile(`COLMAP\s+(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion finds the "COLMAP x.y[.z]" banner in help output.
func ParseVersion(help string) (Version, bool) {
	for _, line := range strings.Split(help, "\n") {
		m := versionRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		var v Version
		v.Major, _ = strconv.Atoi(m[1])
		v.Minor, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			v.Patch, _ = strconv.Atoi(m[3])
		}
		return v, true
	}
	return Version{}, false
}

// Version runs `colmap -h`. Older builds exit non-zero on -h, so output is
// parsed even when the command fails.
func (c *Client) Version(ctx context.Context) Version {
	out, _ := c.Runner.Output(ctx, c.Binary, "-h")
	if v, ok := ParseVersion(string(out)); ok {
		return v
	}
	return DefaultVersion
}

type FeatureExtractorOptions struct {
	DatabasePath string
	ImagePath    string
	CameraModel  string
	SingleCamera bool
	UseGPU       bool
}

func (o FeatureExtractorOptions) Args() []string {
	return []string{
		"feature_extractor",
		"--database_path", o.DatabasePath,
		"--image_path", o.ImagePath,
		"--ImageReader.single_camera", boolFlag(o.SingleCamera),
		"--ImageReader.camera_model", o.CameraModel,
		"--SiftExtraction.use_gpu", boolFlag(o.UseGPU),
	}
}

func (c *Client) FeatureExtractor(ctx context.Context, opts FeatureExtractorOptions) error {
	return c.Runner.Run(ctx, c.Binary, opts.Args()...)
}

type MatcherOptions struct {
	// Method is exhaustive, sequential or vocab_tree.
	Method        string
	DatabasePath  string
	UseGPU        bool
	VocabTreePath string
}

func (o MatcherOptions) Args() []string {
	args := []string{
		o.Method + "_matcher",
		"--database_path", o.DatabasePath,
		"--SiftMatching.use_gpu", boolFlag(o.UseGPU),
	}
	if o.Method == "vocab_tree" {
		args = append(args, "--VocabTreeMatching.vocab_tree_path", o.VocabTreePath)
	}
	return args
}

func (c *Client) Matcher(ctx context.Context, opts MatcherOptions) error {
	return c.Runner.Run(ctx, c.Binary, opts.Args()...)
}

type MapperOptions struct {
	DatabasePath string
	ImagePath    string
	OutputPath   string
	Version      Version
}

func (o MapperOptions) Args() []string {
	args := []string{
		"mapper",
		"--database_path", o.DatabasePath,
		"--image_path", o.ImagePath,
		"--output_path", o.OutputPath,
	}
	if o.Version.AtLeast(3, 7) {
		args = append(args, "--Mapper.ba_global_function_tolerance=1e-6")
	}
	return args
}

func (c *Client) Mapper(ctx context.Context, opts MapperOptions) error {
	return c.Runner.Run(ctx, c.Binary, opts.Args()...)
}

type BundleAdjusterOptions struct {
	InputPath            string
	OutputPath           string
	RefinePrincipalPoint bool
}

func (o BundleAdjusterOptions) Args() []string {
	return []string{
		"bundle_adjuster",
		"--input_path", o.InputPath,
		"--output_path", o.OutputPath,
		"--BundleAdjustment.refine_principal_point", boolFlag(o.RefinePrincipalPoint),
	}
}

func (c *Client) BundleAdjuster(ctx context.Context, opts BundleAdjusterOptions) error {
	return c.Runner.Run(ctx, c.Binary, opts.Args()...)
}

type GUIOptions struct {
	DatabasePath string
	ImagePath    string
	ImportPath   string
}

func (o GUIOptions) Args() []string {
	args := []string{"gui"}
	if o.DatabasePath != "" {
		args = append(args, "--database_path", o.DatabasePath)
	}
	if o.ImagePath != "" {
		args = append(args, "--image_path", o.ImagePath)
	}
	if o.ImportPath != "" {
		args = append(args, "--import_path", o.ImportPath)
	}
	return args
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
