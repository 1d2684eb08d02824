package pipeline

import (
	"errors"
	"fmt"

	"sfmconv/pkg/colmap"
	"sfmconv/pkg/hloc"
)

var (
	// ErrUnknownTool is returned for any pipeline name other than colmap or hloc.
	ErrUnknownTool = errors.New("unknown sfm tool")
	// ErrInvalidOptions wraps every other validation failure.
	ErrInvalidOptions = errors.New("invalid options")
)

// Tool selects the external reconstruction pipeline.
type Tool string

const (
	ToolColmap Tool = "colmap"
	ToolHloc   Tool = "hloc"
)

func ParseTool(s string) (Tool, error) {
	switch t := Tool(s); t {
	case ToolColmap, ToolHloc:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q (want colmap or hloc)", ErrUnknownTool, s)
}

type MatchingMethod string

const (
	MatchExhaustive MatchingMethod = "exhaustive"
	MatchSequential MatchingMethod = "sequential"
	MatchVocabTree  MatchingMethod = "vocab_tree"
)

func ParseMatchingMethod(s string) (MatchingMethod, error) {
	switch m := MatchingMethod(s); m {
	case MatchExhaustive, MatchSequential, MatchVocabTree:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown matching method %q", ErrInvalidOptions, s)
}

// Options is the fully resolved configuration of one run.
type Options struct {
	Data           string
	OutputDir      string
	Tool           Tool
	MatchingMethod MatchingMethod
	FeatureType    string
	MatcherType    string
	// CameraModel is a camera kind such as "perspective".
	CameraModel      string
	FPS              int
	GPU              bool
	Verbose          bool
	RefineIntrinsics bool
	VocabTreePath    string
	NumMatched       int
}

func (o Options) Validate() error {
	if o.Data == "" {
		return fmt.Errorf("%w: input path is required", ErrInvalidOptions)
	}
	if o.OutputDir == "" {
		return fmt.Errorf("%w: output dir is required", ErrInvalidOptions)
	}
	if _, err := ParseTool(string(o.Tool)); err != nil {
		return err
	}
	if _, err := ParseMatchingMethod(string(o.MatchingMethod)); err != nil {
		return err
	}
	if o.FPS < 1 {
		return fmt.Errorf("%w: fps must be at least 1, got %d", ErrInvalidOptions, o.FPS)
	}
	if _, err := colmap.CameraModel(o.CameraModel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if o.Tool == ToolHloc {
		if !hloc.KnownFeature(o.FeatureType) {
			return fmt.Errorf("%w: unknown feature type %q", ErrInvalidOptions, o.FeatureType)
		}
		if !hloc.KnownMatcher(o.MatcherType) {
			return fmt.Errorf("%w: unknown matcher type %q", ErrInvalidOptions, o.MatcherType)
		}
		if o.MatchingMethod != MatchExhaustive && o.NumMatched < 1 {
			return fmt.Errorf("%w: num matched must be at least 1", ErrInvalidOptions)
		}
	}
	return nil
}
