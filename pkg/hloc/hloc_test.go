package hloc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	name string
	args []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	f.name = name
	f.args = args
	return nil
}

func TestKnownConfs(t *testing.T) {
	assert.True(t, KnownFeature("superpoint_aachen"))
	assert.True(t, KnownFeature("disk"))
	assert.False(t, KnownFeature("orb"))

	assert.True(t, KnownMatcher("superglue"))
	assert.True(t, KnownMatcher("superpoint+lightglue"))
	assert.False(t, KnownMatcher("brute-force"))
}

func TestExtractFeaturesInvokesModule(t *testing.T) {
	r := &fakeRunner{}
	c := NewClient("python3", r)

	err := c.ExtractFeatures(context.Background(), ExtractOptions{
		Conf:        "superpoint_aachen",
		ImageDir:    "in",
		ExportDir:   "out",
		ImageList:   "out/image-list.txt",
		FeaturePath: "out/features.h5",
	})
	require.NoError(t, err)

	assert.Equal(t, "python3", r.name)
	assert.Equal(t, []string{
		"-m", "hloc.extract_features",
		"--conf", "superpoint_aachen",
		"--image_dir", "in",
		"--export_dir", "out",
		"--image_list", "out/image-list.txt",
		"--feature_path", "out/features.h5",
	}, r.args)
}

func TestExtractArgsOmitOptional(t *testing.T) {
	args := ExtractOptions{Conf: "netvlad", ImageDir: "in", ExportDir: "out"}.Args()
	assert.Equal(t, []string{"--conf", "netvlad", "--image_dir", "in", "--export_dir", "out"}, args)
}

func TestPairsFromRetrieval(t *testing.T) {
	r := &fakeRunner{}
	c := NewClient("python", r)

	require.NoError(t, c.PairsFromRetrieval(context.Background(), "g.h5", "pairs.txt", 12))
	assert.Equal(t, []string{
		"-m", "hloc.pairs_from_retrieval",
		"--descriptors", "g.h5",
		"--output", "pairs.txt",
		"--num_matched", "12",
	}, r.args)
}

func TestPairsFromExhaustive(t *testing.T) {
	r := &fakeRunner{}
	c := NewClient("python", r)

	require.NoError(t, c.PairsFromExhaustive(context.Background(), "pairs.txt", "list.txt"))
	assert.Equal(t, []string{"-m", "hloc.pairs_from_exhaustive", "--output", "pairs.txt", "--image_list", "list.txt"}, r.args)
}

func TestReconstructionArgs(t *testing.T) {
	args := ReconstructionOptions{
		SfMDir:      "sparse/0",
		ImageDir:    "images",
		Pairs:       "pairs.txt",
		Features:    "features.h5",
		Matches:     "matches.h5",
		CameraModel: "OPENCV",
		Verbose:     true,
	}.Args()

	assert.Contains(t, args, "camera_model=OPENCV")
	assert.Equal(t, "--verbose", args[len(args)-1])

	i := indexOf(args, "--camera_mode")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, "SINGLE", args[i+1])
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}
