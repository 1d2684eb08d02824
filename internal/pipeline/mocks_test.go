package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"sfmconv/pkg/models"
)

type MockFrameExtractor struct {
	ExtractFramesFunc func(ctx context.Context, videoPath, outputDir string, fps int) (*models.FrameExtraction, error)
	Calls             int
}

func (m *MockFrameExtractor) ExtractFrames(ctx context.Context, videoPath, outputDir string, fps int) (*models.FrameExtraction, error) {
	m.Calls++
	return m.ExtractFramesFunc(ctx, videoPath, outputDir, fps)
}

type MockReconstructor struct {
	ToolValue       Tool
	CheckErr        error
	ReconstructFunc func(ctx context.Context, job Job) error
	Jobs            []Job
}

func (m *MockReconstructor) Tool() Tool { return m.ToolValue }

func (m *MockReconstructor) Check() error { return m.CheckErr }

func (m *MockReconstructor) Reconstruct(ctx context.Context, job Job) error {
	m.Jobs = append(m.Jobs, job)
	if m.ReconstructFunc == nil {
		return nil
	}
	return m.ReconstructFunc(ctx, job)
}

type call struct {
	name string
	args []string
}

// recordingRunner stands in for proc.ExecRunner. onRun lets a test emulate
// the files an external tool would write.
type recordingRunner struct {
	calls  []call
	output string
	onRun  func(args []string) error
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) error {
	r.calls = append(r.calls, call{name, args})
	if r.onRun != nil {
		return r.onRun(args)
	}
	return nil
}

func (r *recordingRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, call{name, args})
	return []byte(r.output), nil
}

// firstArgs lists the first argument of each call, which names the colmap
// subcommand or the python -m module.
func (r *recordingRunner) firstArgs() []string {
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		if len(c.args) >= 2 && c.args[0] == "-m" {
			out = append(out, c.args[1])
			continue
		}
		if len(c.args) > 0 {
			out = append(out, c.args[0])
		}
	}
	return out
}

func (r *recordingRunner) find(first string) []string {
	for _, c := range r.calls {
		if len(c.args) > 0 && c.args[0] == first {
			return c.args
		}
		if len(c.args) >= 2 && c.args[0] == "-m" && c.args[1] == first {
			return c.args
		}
	}
	return nil
}

func fakeBinary(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755))
	return path
}

func makeImageDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("img"), 0644))
	}
	return dir
}

func argValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
