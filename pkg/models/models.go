package models

import "time"

// Input kinds recorded in a manifest.
const (
	InputVideo  = "video"
	InputImages = "images"
)

type RunOptions struct {
	SfMTool          string `json:"sfm_tool"`
	MatchingMethod   string `json:"matching_method"`
	FeatureType      string `json:"feature_type,omitempty"`
	MatcherType      string `json:"matcher_type,omitempty"`
	CameraModel      string `json:"camera_model"`
	FPS              int    `json:"fps"`
	GPU              bool   `json:"gpu"`
	RefineIntrinsics bool   `json:"refine_intrinsics"`
}

type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

type CameraRecord struct {
	ID     int64  `json:"id"`
	Model  string `json:"model"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ImageRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CameraID  int64  `json:"camera_id"`
	Keypoints int    `json:"keypoints"`
}

// DatabaseSummary aggregates the tables of a colmap database.db.
type DatabaseSummary struct {
	Cameras       int   `json:"cameras"`
	Images        int   `json:"images"`
	Keypoints     int64 `json:"keypoints"`
	MatchedPairs  int   `json:"matched_pairs"`
	VerifiedPairs int   `json:"verified_pairs"`
}

// ModelSummary describes a sparse model directory such as sparse/0.
type ModelSummary struct {
	Format           string `json:"format"`
	Cameras          int    `json:"cameras"`
	RegisteredImages int    `json:"registered_images"`
	Points3D         int    `json:"points3d"`
}

// RunManifest is written to <output_dir>/run.json after each run.
type RunManifest struct {
	ID            string           `json:"id"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	Input         string           `json:"input"`
	InputKind     string           `json:"input_kind"`
	OutputDir     string           `json:"output_dir"`
	ImageDir      string           `json:"image_dir"`
	DatabasePath  string           `json:"database_path"`
	SparseDir     string           `json:"sparse_dir"`
	Options       RunOptions       `json:"options"`
	FrameCount    int              `json:"frame_count,omitempty"`
	VideoDuration float64          `json:"video_duration,omitempty"`
	Stages        []StageTiming    `json:"stages"`
	Database      *DatabaseSummary `json:"database,omitempty"`
	Model         *ModelSummary    `json:"model,omitempty"`
}

// FrameExtraction is the outcome of sampling a video into still frames.
type FrameExtraction struct {
	FramePaths    []string
	FrameCount    int
	VideoDuration float64
}
