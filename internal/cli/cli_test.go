package cli

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sfmconv/internal/pipeline"
	"sfmconv/pkg/models"
)

// fakeColmap answers every subcommand successfully and writes a text model
// when asked to map.
const fakeColmap = `#!/bin/sh
cmd="$1"
shift
if [ "$cmd" = "mapper" ]; then
	while [ $# -gt 0 ]; do
		if [ "$1" = "--output_path" ]; then
			mkdir -p "$2/0"
			printf '# Number of cameras: 1\n' > "$2/0/cameras.txt"
			printf '# Number of images: 3, mean observations per image: 120\n' > "$2/0/images.txt"
			printf '# Number of points: 420, mean track length: 2.5\n' > "$2/0/points3D.txt"
		fi
		shift
	done
fi
exit 0
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func withColmap(t *testing.T, script string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "colmap")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	prev := cfg.ColmapBinary
	cfg.ColmapBinary = path
	t.Cleanup(func() { cfg.ColmapBinary = prev })
}

func imageDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("img"), 0644))
	}
	return dir
}

func TestRunColmapImageFolder(t *testing.T) {
	withColmap(t, fakeColmap)
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	data := imageDir(t)
	outDir := filepath.Join(t.TempDir(), "out")
	metricsFile := filepath.Join(t.TempDir(), "sfmconv.prom")

	out, err := execute(t, "run", data,
		"--output-dir", outDir,
		"--sfm-tool", "colmap",
		"--matching-method", "exhaustive",
		"--camera-model", "perspective",
		"--gpu=false",
		"--verbose=false",
		"--refine-intrinsics=false",
		"--metrics-file", metricsFile,
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Running COLMAP pipeline...")
	assert.Contains(t, out, "SfM finished. Results saved in "+outDir)
	assert.Contains(t, out, filepath.Join(outDir, "sparse", "0"))

	m, err := pipeline.ReadManifest(filepath.Join(outDir, "run.json"))
	require.NoError(t, err)
	assert.Equal(t, models.InputImages, m.InputKind)
	assert.Equal(t, data, m.ImageDir)
	require.NotNil(t, m.Model)
	assert.Equal(t, 3, m.Model.RegisteredImages)
	assert.Equal(t, 420, m.Model.Points3D)

	assert.FileExists(t, metricsFile)
}

func TestRunUnknownTool(t *testing.T) {
	withColmap(t, fakeColmap)

	_, err := execute(t, "run", imageDir(t),
		"--output-dir", t.TempDir(),
		"--sfm-tool", "meshroom",
		"--gpu=false",
		"--verbose=false",
		"--metrics-file", "",
	)
	require.ErrorIs(t, err, pipeline.ErrUnknownTool)
}

func TestRunFailsWhenMapperProducesNothing(t *testing.T) {
	withColmap(t, "#!/bin/sh\nexit 0\n")

	_, err := execute(t, "run", imageDir(t),
		"--output-dir", t.TempDir(),
		"--sfm-tool", "colmap",
		"--matching-method", "sequential",
		"--gpu=false",
		"--verbose=false",
		"--refine-intrinsics=false",
		"--metrics-file", "",
	)
	require.ErrorIs(t, err, pipeline.ErrNoReconstruction)
}

func newOutputDir(t *testing.T, kind string) pipeline.Layout {
	t.Helper()
	layout := pipeline.NewLayout(t.TempDir())
	require.NoError(t, layout.Ensure())

	db, err := sql.Open("sqlite3", layout.Database)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE cameras (camera_id INTEGER PRIMARY KEY, model INTEGER NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, params BLOB, prior_focal_length INTEGER NOT NULL)`,
		`CREATE TABLE images (image_id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE, camera_id INTEGER NOT NULL)`,
		`CREATE TABLE keypoints (image_id INTEGER PRIMARY KEY, "rows" INTEGER NOT NULL, cols INTEGER NOT NULL, data BLOB)`,
		`INSERT INTO cameras (camera_id, model, width, height, prior_focal_length) VALUES (1, 4, 1280, 720, 0)`,
		`INSERT INTO images (image_id, name, camera_id) VALUES (1, '0001.jpg', 1), (2, '0002.jpg', 1)`,
		`INSERT INTO keypoints (image_id, "rows", cols) VALUES (1, 512, 6), (2, 256, 6)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	imagesDir := t.TempDir()
	if kind == models.InputVideo {
		imagesDir = layout.Images
		require.NoError(t, os.MkdirAll(imagesDir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(imagesDir, "0001.jpg"), []byte("img"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(imagesDir, "0002.jpg"), []byte("img"), 0644))
	}

	require.NoError(t, pipeline.WriteManifest(layout.Manifest, &models.RunManifest{
		ID:         "test-run",
		FinishedAt: time.Now(),
		InputKind:  kind,
		OutputDir:  layout.Root,
		ImageDir:   imagesDir,
		Options:    models.RunOptions{SfMTool: "colmap"},
	}))
	return layout
}

func TestInspectSummarizesRun(t *testing.T) {
	layout := newOutputDir(t, models.InputVideo)

	out, err := execute(t, "inspect", layout.Root, "--images=true", "--limit", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "Run test-run (colmap, video input)")
	assert.Regexp(t, `Images\s+2`, out)
	assert.Regexp(t, `Keypoints\s+768`, out)
	assert.Contains(t, out, "(missing)")
	assert.Regexp(t, `1\s+OPENCV\s+1280\s+720`, out)
	assert.Contains(t, out, "0002.jpg")
}

func TestInspectMissingDatabase(t *testing.T) {
	_, err := execute(t, "inspect", t.TempDir(), "--images=false")
	require.Error(t, err)
}

func TestCleanRemovesExtractedFrames(t *testing.T) {
	layout := newOutputDir(t, models.InputVideo)

	out, err := execute(t, "clean", layout.Root)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 2 extracted frames")
	assert.NoDirExists(t, layout.Images)
	assert.FileExists(t, layout.Database)

	out, err = execute(t, "clean", layout.Root)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to clean")
}

func TestCleanRefusesUserImages(t *testing.T) {
	layout := newOutputDir(t, models.InputImages)
	m, err := pipeline.ReadManifest(layout.Manifest)
	require.NoError(t, err)

	_, err = execute(t, "clean", layout.Root)
	require.ErrorIs(t, err, ErrNotExtracted)
	assert.DirExists(t, m.ImageDir)
}

func TestGUIOptionsPrefersRecordedImageDir(t *testing.T) {
	layout := newOutputDir(t, models.InputImages)
	m, err := pipeline.ReadManifest(layout.Manifest)
	require.NoError(t, err)

	opts := guiOptions(layout)
	assert.Equal(t, m.ImageDir, opts.ImagePath)
	assert.Equal(t, layout.Database, opts.DatabasePath)
	assert.Equal(t, layout.Model, opts.ImportPath)

	bare := pipeline.NewLayout(t.TempDir())
	assert.Equal(t, bare.Images, guiOptions(bare).ImagePath)
}

func TestBanner(t *testing.T) {
	assert.Equal(t, "Running COLMAP pipeline...", banner(pipeline.Options{Tool: pipeline.ToolColmap}))
	assert.Equal(t, "Running HLOC pipeline (superpoint_aachen + superglue)...",
		banner(pipeline.Options{Tool: pipeline.ToolHloc, FeatureType: "superpoint_aachen", MatcherType: "superglue"}))
}
