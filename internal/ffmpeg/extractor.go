package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"sfmconv/internal/proc"
	"sfmconv/pkg/models"
)

// ErrNoFrames is returned when ffmpeg succeeds but writes nothing.
var ErrNoFrames = errors.New("no frames extracted from video")

type Extractor struct {
	ffmpeg  string
	ffprobe string
	format  string
	runner  proc.Runner
	logger  *zap.Logger
}

func NewExtractor(ffmpegBin, ffprobeBin string, runner proc.Runner, logger *zap.Logger) *Extractor {
	return &Extractor{
		ffmpeg:  ffmpegBin,
		ffprobe: ffprobeBin,
		format:  "jpg",
		runner:  runner,
		logger:  logger,
	}
}

// Args returns the ffmpeg arguments that sample videoPath at fps frames per
// second into numbered frames under outputDir.
func (e *Extractor) Args(videoPath, outputDir string, fps int) []string {
	return []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", fps),
		"-y",
		filepath.Join(outputDir, "%04d."+e.format),
	}
}

// ExtractFrames samples videoPath into outputDir. Frames left there by an
// earlier run are removed first so the result only counts this run's output.
func (e *Extractor) ExtractFrames(ctx context.Context, videoPath string, outputDir string, fps int) (*models.FrameExtraction, error) {
	bin, err := proc.Require(e.ffmpeg)
	if err != nil {
		return nil, fmt.Errorf("%w; install it (e.g. apt-get install ffmpeg)", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}
	if err := e.removeFrames(outputDir); err != nil {
		return nil, err
	}

	duration, err := e.videoDuration(ctx, videoPath)
	if err != nil {
		e.logger.Warn("could not get video duration", zap.Error(err))
	}

	args := e.Args(videoPath, outputDir, fps)
	e.logger.Info("extracting frames with ffmpeg", zap.String("cmd", proc.FormatCommand(e.ffmpeg, args...)))
	if err := e.runner.Run(ctx, bin, args...); err != nil {
		return nil, err
	}

	frames, err := e.frames(outputDir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	e.logger.Info("frames extracted",
		zap.Int("count", len(frames)),
		zap.Float64("video_duration", duration),
	)

	return &models.FrameExtraction{
		FramePaths:    frames,
		FrameCount:    len(frames),
		VideoDuration: duration,
	}, nil
}

func (e *Extractor) frames(dir string) ([]string, error) {
	frames, err := filepath.Glob(filepath.Join(dir, "*."+e.format))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	return frames, nil
}

func (e *Extractor) removeFrames(dir string) error {
	stale, err := e.frames(dir)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		e.logger.Debug("removing frames from a previous run", zap.Int("count", len(stale)))
	}
	for _, f := range stale {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("remove stale frame: %w", err)
		}
	}
	return nil
}

func (e *Extractor) videoDuration(ctx context.Context, videoPath string) (float64, error) {
	output, err := e.runner.Output(ctx, e.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}
