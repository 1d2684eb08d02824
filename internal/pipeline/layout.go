package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var videoExts = []string{".mp4", ".mov", ".avi", ".mkv"}

var imageExts = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff"}

// Layout is the directory structure written under an output dir.
type Layout struct {
	Root     string
	Images   string
	Database string
	Sparse   string
	Model    string
	Manifest string
}

func NewLayout(root string) Layout {
	sparse := filepath.Join(root, "sparse")
	return Layout{
		Root:     root,
		Images:   filepath.Join(root, "images"),
		Database: filepath.Join(root, "database.db"),
		Sparse:   sparse,
		Model:    filepath.Join(sparse, "0"),
		Manifest: filepath.Join(root, "run.json"),
	}
}

// Ensure creates the output and sparse directories. It is safe to call on an
// existing layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Root, l.Sparse} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// IsVideo reports whether path is an existing regular file with a known
// video extension.
func IsVideo(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return slices.Contains(videoExts, strings.ToLower(filepath.Ext(path)))
}

// ListImages returns the sorted names of image files directly inside dir.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
