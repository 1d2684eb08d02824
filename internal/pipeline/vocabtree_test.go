package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabTreeDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("vocab"))
	}))
	defer srv.Close()

	v := &VocabTree{URL: srv.URL + "/trees/vocab_tree_flickr100K_words32K.bin", CacheDir: t.TempDir()}

	path, err := v.Path(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(v.CacheDir, "vocab_tree_flickr100K_words32K.bin"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "vocab", string(body))

	_, err = v.Path(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestVocabTreeDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	v := &VocabTree{URL: srv.URL + "/tree.bin", CacheDir: t.TempDir()}
	_, err := v.Path(context.Background(), "")
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(v.CacheDir, "tree.bin"))
}

func TestVocabTreeConfiguredPath(t *testing.T) {
	v := &VocabTree{}

	_, err := v.Path(context.Background(), filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)

	tree := filepath.Join(t.TempDir(), "tree.bin")
	require.NoError(t, os.WriteFile(tree, nil, 0644))
	path, err := v.Path(context.Background(), tree)
	require.NoError(t, err)
	assert.Equal(t, tree, path)
}
