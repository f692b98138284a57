package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/noot-app/macroplan-mcp-server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = "test parquet data"

// parquetServer serves payload with an ETag and counts GETs
func parquetServer(t *testing.T, etag string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", etag)
		if r.Method == http.MethodGet {
			gets.Add(1)
			_, _ = w.Write([]byte(payload))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &gets
}

func newTestManager(t *testing.T, url string, mutate func(*config.Config)) *Manager {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		ParquetURL:   url,
		ParquetPath:  filepath.Join(dir, "food.parquet"),
		MetadataPath: filepath.Join(dir, "metadata.json"),
		LockFile:     filepath.Join(dir, "refresh.lock"),
	}
	if mutate != nil {
		mutate(cfg)
	}
	m := NewManager(cfg, config.NewTestLogger(io.Discard, "debug"))
	m.pollInterval = 10 * time.Millisecond
	return m
}

func TestManager_EnsureDataset_Downloads(t *testing.T) {
	srv, gets := parquetServer(t, "v1")
	m := newTestManager(t, srv.URL, nil)

	require.NoError(t, m.EnsureDataset(context.Background()))

	data, err := os.ReadFile(m.Path())
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
	assert.Equal(t, int32(1), gets.Load())

	meta, err := m.loadMetadata()
	require.NoError(t, err)
	sum := sha256.Sum256([]byte(payload))
	assert.Equal(t, hex.EncodeToString(sum[:]), meta.SHA256)
	assert.Equal(t, "v1", meta.ETag)
	assert.Equal(t, int64(len(payload)), meta.Size)

	_, err = os.Stat(m.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(m.lockPath)
	assert.True(t, os.IsNotExist(err), "lock must be released")
}

func TestManager_EnsureDataset_SkipsWhenUpToDate(t *testing.T) {
	srv, gets := parquetServer(t, "v1")
	m := newTestManager(t, srv.URL, nil)

	require.NoError(t, m.EnsureDataset(context.Background()))
	require.NoError(t, m.EnsureDataset(context.Background()))

	assert.Equal(t, int32(1), gets.Load())
}

func TestManager_EnsureDataset_RefreshesOnNewETag(t *testing.T) {
	srv, gets := parquetServer(t, "v2")
	m := newTestManager(t, srv.URL, nil)
	require.NoError(t, os.WriteFile(m.Path(), []byte("old"), 0o644))
	require.NoError(t, m.saveMetadata(&Metadata{ETag: "v1", Size: 3}))

	require.NoError(t, m.EnsureDataset(context.Background()))

	assert.Equal(t, int32(1), gets.Load())
	meta, err := m.loadMetadata()
	require.NoError(t, err)
	assert.Equal(t, "v2", meta.ETag)
}

func TestManager_EnsureDataset_RemoteCheckDisabled(t *testing.T) {
	srv, gets := parquetServer(t, "v2")
	m := newTestManager(t, srv.URL, func(c *config.Config) { c.DisableRemoteCheck = true })
	require.NoError(t, os.WriteFile(m.Path(), []byte("old"), 0o644))

	require.NoError(t, m.EnsureDataset(context.Background()))

	assert.Zero(t, gets.Load())
}

func TestManager_EnsureDataset_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	m := newTestManager(t, srv.URL, nil)

	err := m.EnsureDataset(context.Background())

	require.Error(t, err)
	_, statErr := os.Stat(m.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestManager_Lock(t *testing.T) {
	t.Run("waits for another instance", func(t *testing.T) {
		srv, gets := parquetServer(t, "v1")
		m := newTestManager(t, srv.URL, nil)
		lock, err := acquireLock(m.lockPath)
		require.NoError(t, err)
		defer releaseLock(lock, m.lockPath)

		go func() {
			time.Sleep(30 * time.Millisecond)
			_ = os.WriteFile(m.Path(), []byte(payload), 0o644)
		}()

		require.NoError(t, m.EnsureDataset(context.Background()))
		assert.Zero(t, gets.Load())
	})

	t.Run("wait honours context", func(t *testing.T) {
		srv, _ := parquetServer(t, "v1")
		m := newTestManager(t, srv.URL, nil)
		lock, err := acquireLock(m.lockPath)
		require.NoError(t, err)
		defer releaseLock(lock, m.lockPath)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		assert.ErrorIs(t, m.EnsureDataset(ctx), context.DeadlineExceeded)
	})

	t.Run("IGNORE_LOCK forces download", func(t *testing.T) {
		srv, gets := parquetServer(t, "v1")
		m := newTestManager(t, srv.URL, func(c *config.Config) { c.IgnoreLock = true })
		require.NoError(t, os.WriteFile(m.lockPath, nil, 0o644))

		require.NoError(t, m.EnsureDataset(context.Background()))
		assert.Equal(t, int32(1), gets.Load())
	})

	t.Run("second acquire fails until released", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "x.lock")
		lock, err := acquireLock(path)
		require.NoError(t, err)

		_, err = acquireLock(path)
		assert.Error(t, err)

		releaseLock(lock, path)
		lock, err = acquireLock(path)
		require.NoError(t, err)
		releaseLock(lock, path)
	})
}
