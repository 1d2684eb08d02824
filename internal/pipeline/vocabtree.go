package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"
)

// VocabTree resolves the vocabulary tree colmap needs for vocab_tree matching,
// downloading it into CacheDir on first use.
type VocabTree struct {
	URL      string
	CacheDir string
	Client   *http.Client
	Logger   *zap.Logger
}

// DefaultCacheDir is <user cache dir>/sfmconv.
func DefaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("user cache dir: %w", err)
	}
	return filepath.Join(dir, "sfmconv"), nil
}

// Path returns configured when set, otherwise the cached download.
func (v *VocabTree) Path(ctx context.Context, configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", err
		}
		return configured, nil
	}

	dest := filepath.Join(v.CacheDir, path.Base(v.URL))
	if exists(dest) {
		return dest, nil
	}
	if err := v.download(ctx, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (v *VocabTree) download(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return err
	}
	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}

	if v.Logger != nil {
		v.Logger.Info("downloading vocab tree", zap.String("url", v.URL), zap.String("dest", dest))
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", v.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", v.URL, resp.Status)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", v.URL, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
