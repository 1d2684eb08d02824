package colmapdb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"sfmconv/pkg/models"
)

// ErrNoModel is returned when a directory holds neither a binary nor a text
// sparse model.
var ErrNoModel = errors.New("no sparse model")

var modelFiles = [3]string{"cameras", "images", "points3D"}

// ReadModelSummary reads the object counts of a sparse model directory.
func ReadModelSummary(dir string) (*models.ModelSummary, error) {
	if exists(filepath.Join(dir, "images.bin")) {
		return readBinarySummary(dir)
	}
	if exists(filepath.Join(dir, "images.txt")) {
		return readTextSummary(dir)
	}
	return nil, fmt.Errorf("%w in %s", ErrNoModel, dir)
}

func readBinarySummary(dir string) (*models.ModelSummary, error) {
	var counts [3]int
	for i, name := range modelFiles {
		n, err := readBinaryCount(filepath.Join(dir, name+".bin"))
		if err != nil {
			return nil, err
		}
		counts[i] = n
	}
	return &models.ModelSummary{
		Format:           "bin",
		Cameras:          counts[0],
		RegisteredImages: counts[1],
		Points3D:         counts[2],
	}, nil
}

// Every colmap binary model file starts with a little-endian uint64 count.
func readBinaryCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	var n uint64
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return 0, fmt.Errorf("read %s header: %w", filepath.Base(path), err)
	}
	return int(n), nil
}

var textHeaderRe = regexp.MustCompile(`^#\s*Number of (?:cameras|images|points):\s*(\d+)`)

func readTextSummary(dir string) (*models.ModelSummary, error) {
	var counts [3]int
	for i, name := range modelFiles {
		n, err := readTextCount(filepath.Join(dir, name+".txt"), name == "images")
		if err != nil {
			return nil, err
		}
		counts[i] = n
	}
	return &models.ModelSummary{
		Format:           "txt",
		Cameras:          counts[0],
		RegisteredImages: counts[1],
		Points3D:         counts[2],
	}, nil
}

// readTextCount prefers the "# Number of ..." header and falls back to
// counting data lines. images.txt stores two lines per image.
func readTextCount(path string, twoLinesPerEntry bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			if m := textHeaderRe.FindStringSubmatch(line); m != nil {
				return strconv.Atoi(m[1])
			}
			continue
		}
		if line != "" || twoLinesPerEntry {
			lines++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if twoLinesPerEntry {
		return (lines + 1) / 2, nil
	}
	return lines, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
