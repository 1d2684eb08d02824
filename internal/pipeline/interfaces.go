package pipeline

import (
	"context"

	"sfmconv/pkg/models"
)

// FrameExtractor samples a video into numbered still frames at fps frames
// per second.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath string, outputDir string, fps int) (*models.FrameExtraction, error)
}

// Job is what a Reconstructor needs to produce database.db and sparse/0.
type Job struct {
	ImageDir string
	Layout   Layout
	Options  Options
}

type Reconstructor interface {
	Tool() Tool
	// Check reports a missing external tool before any work starts.
	Check() error
	Reconstruct(ctx context.Context, job Job) error
}
