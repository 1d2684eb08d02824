package colmap

import "fmt"

// cameraModels maps user-facing camera kinds to colmap camera models.
var cameraModels = map[string]string{
	"perspective":    "OPENCV",
	"fisheye":        "OPENCV_FISHEYE",
	"pinhole":        "PINHOLE",
	"simple_pinhole": "SIMPLE_PINHOLE",
}

// CameraModel resolves a camera kind such as "perspective" to the colmap model
// name passed to --ImageReader.camera_model.
func CameraModel(kind string) (string, error) {
	m, ok := cameraModels[kind]
	if !ok {
		return "", fmt.Errorf("unknown camera model %q", kind)
	}
	return m, nil
}

// modelNames follows the numeric model ids colmap stores in the cameras table.
var modelNames = []string{
	"SIMPLE_PINHOLE",
	"PINHOLE",
	"SIMPLE_RADIAL",
	"RADIAL",
	"OPENCV",
	"OPENCV_FISHEYE",
	"FULL_OPENCV",
	"FOV",
	"SIMPLE_RADIAL_FISHEYE",
	"RADIAL_FISHEYE",
	"THIN_PRISM_FISHEYE",
}

// ModelName returns the colmap name for a camera model id.
func ModelName(id int) string {
	if id < 0 || id >= len(modelNames) {
		return fmt.Sprintf("UNKNOWN(%d)", id)
	}
	return modelNames[id]
}
