package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	RunsTotal.WithLabelValues("colmap", "completed").Inc()
	StageDuration.WithLabelValues("extract_frames").Observe(3)
	FramesExtracted.Set(24)

	path := filepath.Join(t.TempDir(), "sfmconv.prom")
	require.NoError(t, WriteTextfile(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `sfmconv_runs_total{status="completed",tool="colmap"}`)
	assert.Contains(t, text, "sfmconv_frames_extracted 24")
	assert.Contains(t, text, `sfmconv_stage_duration_seconds_count{stage="extract_frames"} 1`)
}

func TestWriteTextfileDisabled(t *testing.T) {
	assert.NoError(t, WriteTextfile(""))
}
