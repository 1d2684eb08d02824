package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every sfmconv collector. It is kept separate from the
// default registry so the textfile output contains only run metrics.
var Registry = prometheus.NewRegistry()

var (
	RunsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "sfmconv_runs_total",
		Help: "Total number of reconstruction runs, by tool and status",
	}, []string{"tool", "status"})

	StageDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sfmconv_stage_duration_seconds",
		Help:    "Duration of each reconstruction stage",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
	}, []string{"stage"})

	FramesExtracted = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "sfmconv_frames_extracted",
		Help: "Number of frames extracted from the input video in the last run",
	})

	RegisteredImages = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "sfmconv_registered_images",
		Help: "Images registered in the sparse model of the last run",
	})

	Points3D = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "sfmconv_points3d",
		Help: "3D points in the sparse model of the last run",
	})
)
