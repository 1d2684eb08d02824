package colmapdb

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"sfmconv/pkg/colmap"
	"sfmconv/pkg/models"
)

// maxImageID is the multiplier colmap uses to pack two image ids into a pair id.
const maxImageID = 2147483647

// Store is a read-only view of a colmap database.db.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	db, err := sql.Open("sqlite3", readOnlyDSN(abs))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	return &Store{db: db}, nil
}

// readOnlyDSN escapes path so '#', '?' and '%' stay part of the file name.
func readOnlyDSN(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: "mode=ro"}
	return u.String()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Summary() (*models.DatabaseSummary, error) {
	var sum models.DatabaseSummary
	var err error

	if sum.Cameras, err = s.count(`SELECT COUNT(*) FROM cameras`, "cameras"); err != nil {
		return nil, err
	}
	if sum.Images, err = s.count(`SELECT COUNT(*) FROM images`, "images"); err != nil {
		return nil, err
	}
	if sum.MatchedPairs, err = s.count(`SELECT COUNT(*) FROM matches WHERE "rows" > 0`, "matches"); err != nil {
		return nil, err
	}
	if sum.VerifiedPairs, err = s.count(`SELECT COUNT(*) FROM two_view_geometries WHERE "rows" > 0`, "two_view_geometries"); err != nil {
		return nil, err
	}

	ok, err := s.hasTable("keypoints")
	if err != nil {
		return nil, err
	}
	if ok {
		if err := s.db.QueryRow(`SELECT COALESCE(SUM("rows"), 0) FROM keypoints`).Scan(&sum.Keypoints); err != nil {
			return nil, fmt.Errorf("failed to sum keypoints: %w", err)
		}
	}

	return &sum, nil
}

// count runs query when table exists and reports zero otherwise; a freshly
// initialised database may not have every table yet.
func (s *Store) count(query, table string) (int, error) {
	ok, err := s.hasTable(table)
	if err != nil || !ok {
		return 0, err
	}
	var n int
	if err := s.db.QueryRow(query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (s *Store) hasTable(name string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect schema: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListCameras() ([]models.CameraRecord, error) {
	rows, err := s.db.Query(`SELECT camera_id, model, width, height FROM cameras ORDER BY camera_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}
	defer rows.Close()

	var results []models.CameraRecord
	for rows.Next() {
		var c models.CameraRecord
		var model int
		if err := rows.Scan(&c.ID, &model, &c.Width, &c.Height); err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		c.Model = colmap.ModelName(model)
		results = append(results, c)
	}
	return results, rows.Err()
}

// ListImages returns images ordered by id with their keypoint counts. A
// non-positive limit returns every image.
func (s *Store) ListImages(limit int) ([]models.ImageRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
	SELECT
		i.image_id, i.name, i.camera_id, COALESCE(k."rows", 0)
	FROM images i
	LEFT JOIN keypoints k ON k.image_id = i.image_id
	ORDER BY i.image_id
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var results []models.ImageRecord
	for rows.Next() {
		var im models.ImageRecord
		if err := rows.Scan(&im.ID, &im.Name, &im.CameraID, &im.Keypoints); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		results = append(results, im)
	}
	return results, rows.Err()
}

// PairIDToImageIDs unpacks a matches/two_view_geometries pair id.
func PairIDToImageIDs(pairID int64) (int64, int64) {
	id2 := pairID % maxImageID
	id1 := (pairID - id2) / maxImageID
	return id1, id2
}

// ImageIDsToPairID packs two image ids the way colmap does, smaller id first.
func ImageIDsToPairID(id1, id2 int64) int64 {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	return id1*maxImageID + id2
}
