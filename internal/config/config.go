package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the environment-level defaults. Command-line flags override
// every field.
type Config struct {
	SfMTool        string `env:"SFM_TOOL"            envDefault:"hloc"`
	MatchingMethod string `env:"SFM_MATCHING_METHOD" envDefault:"exhaustive"`
	FeatureType    string `env:"SFM_FEATURE_TYPE"    envDefault:"superpoint_aachen"`
	MatcherType    string `env:"SFM_MATCHER_TYPE"    envDefault:"superglue"`
	CameraModel    string `env:"SFM_CAMERA_MODEL"    envDefault:"perspective"`
	OutputDir      string `env:"SFM_OUTPUT_DIR"      envDefault:"colmap_output"`
	FPS            int    `env:"SFM_FPS"             envDefault:"2"`
	GPU            string `env:"SFM_GPU"             envDefault:"auto"`
	Verbose        bool   `env:"SFM_VERBOSE"         envDefault:"true"`

	RefineIntrinsics bool   `env:"SFM_REFINE_INTRINSICS" envDefault:"true"`
	NumMatched       int    `env:"SFM_NUM_MATCHED"       envDefault:"50"`
	VocabTreePath    string `env:"SFM_VOCAB_TREE"`
	VocabTreeURL     string `env:"SFM_VOCAB_TREE_URL" envDefault:"https://demuc.de/colmap/vocab_tree_flickr100K_words32K.bin"`

	ColmapBinary  string `env:"SFM_COLMAP_BIN"  envDefault:"colmap"`
	FFmpegBinary  string `env:"SFM_FFMPEG_BIN"  envDefault:"ffmpeg"`
	FFprobeBinary string `env:"SFM_FFPROBE_BIN" envDefault:"ffprobe"`
	PythonBinary  string `env:"SFM_PYTHON_BIN"  envDefault:"python3"`

	LogLevel     string `env:"SFM_LOG_LEVEL"     envDefault:"info"`
	MetricsFile  string `env:"SFM_METRICS_FILE"`
	OTLPEndpoint string `env:"SFM_OTLP_ENDPOINT"`
}

// Load reads an optional .env file and then parses the environment.
func Load(dotenvFiles ...string) (*Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
