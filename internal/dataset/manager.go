// Package dataset keeps a local copy of the Open Food Facts parquet export used by the
// DuckDB food provider.
package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/noot-app/macroplan-mcp-server/internal/config"
)

// Metadata describes the local copy of the dataset
type Metadata struct {
	SHA256       string    `json:"sha256"`
	DownloadedAt time.Time `json:"downloaded_at"`
	ETag         string    `json:"etag,omitempty"`
	Size         int64     `json:"size"`
}

const (
	headTimeout      = 30 * time.Second
	downloadTimeout  = 30 * time.Minute
	lockPollInterval = 2 * time.Second
	lockWaitTimeout  = 10 * time.Minute
)

// Manager downloads the dataset when missing or stale, guarded by a lock file so only one
// process downloads at a time
type Manager struct {
	url                string
	parquetPath        string
	metadataPath       string
	lockPath           string
	disableRemoteCheck bool
	ignoreLock         bool
	pollInterval       time.Duration
	client             *http.Client
	log                *slog.Logger
}

// NewManager creates a manager from the dataset settings in cfg
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		url:                cfg.ParquetURL,
		parquetPath:        cfg.ParquetPath,
		metadataPath:       cfg.MetadataPath,
		lockPath:           cfg.LockFile,
		disableRemoteCheck: cfg.DisableRemoteCheck,
		ignoreLock:         cfg.IgnoreLock,
		pollInterval:       lockPollInterval,
		client:             &http.Client{},
		log:                logger,
	}
}

// Path returns where the parquet file lives
func (m *Manager) Path() string {
	return m.parquetPath
}

// EnsureDataset makes sure a current copy of the dataset exists locally
func (m *Manager) EnsureDataset(ctx context.Context) error {
	start := time.Now()
	m.log.Info("Ensuring food dataset is available", "parquet_path", m.parquetPath)

	if _, err := os.Stat(m.parquetPath); err == nil {
		if m.disableRemoteCheck {
			m.log.Info("Remote checks disabled, using local dataset", "duration", time.Since(start))
			return nil
		}

		upToDate, err := m.isUpToDate(ctx)
		if err != nil {
			m.log.Warn("Failed to verify dataset freshness", "error", err)
		}
		if upToDate {
			m.log.Info("Dataset is up-to-date", "duration", time.Since(start))
			return nil
		}
	}

	if err := m.downloadWithLock(ctx); err != nil {
		return fmt.Errorf("failed to download dataset: %w", err)
	}

	m.log.Info("Dataset ensured", "duration", time.Since(start))
	return nil
}

// isUpToDate compares local metadata with a HEAD of the remote file, by ETag when both
// sides have one and by size otherwise
func (m *Manager) isUpToDate(ctx context.Context) (bool, error) {
	local, err := m.loadMetadata()
	if err != nil {
		m.log.Debug("No local metadata found", "error", err)
		return false, nil
	}

	remote, err := m.remoteMetadata(ctx)
	if err != nil {
		return false, err
	}

	if remote.ETag != "" && local.ETag != "" {
		return remote.ETag == local.ETag, nil
	}
	return remote.Size == local.Size, nil
}

func (m *Manager) remoteMetadata(ctx context.Context) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, headTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HEAD request failed with status: %d", resp.StatusCode)
	}
	return &Metadata{ETag: resp.Header.Get("ETag"), Size: resp.ContentLength}, nil
}

// downloadWithLock downloads the dataset unless another process holds the lock, in which
// case it waits for that process to finish
func (m *Manager) downloadWithLock(ctx context.Context) error {
	if m.ignoreLock {
		if err := os.Remove(m.lockPath); err == nil {
			m.log.Warn("IGNORE_LOCK enabled, removed existing lock file", "lock_path", m.lockPath)
		}
	}

	lockFile, err := acquireLock(m.lockPath)
	if err != nil {
		if !m.ignoreLock {
			m.log.Info("Another instance is downloading, waiting", "lock_path", m.lockPath)
			return m.waitForDownload(ctx)
		}
		m.log.Warn("IGNORE_LOCK enabled but lock still unavailable, downloading anyway", "error", err)
	}
	if lockFile != nil {
		defer releaseLock(lockFile, m.lockPath)
	}

	if err := os.MkdirAll(filepath.Dir(m.parquetPath), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// download next to the destination so the final rename stays on one filesystem
	tmpPath := m.parquetPath + ".tmp"
	meta, err := m.download(ctx, tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, m.parquetPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move dataset into place: %w", err)
	}
	if err := m.saveMetadata(meta); err != nil {
		m.log.Warn("Failed to save dataset metadata", "error", err)
	}
	return nil
}

// download streams the remote file to path, hashing it on the way
func (m *Manager) download(ctx context.Context, path string) (*Metadata, error) {
	start := time.Now()
	m.log.Info("Downloading food dataset", "url", m.url, "path", path)

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	hash := sha256.New()
	written, err := io.Copy(io.MultiWriter(file, hash), resp.Body)
	if err != nil {
		return nil, err
	}
	if err := file.Sync(); err != nil {
		return nil, err
	}

	meta := &Metadata{
		SHA256:       hex.EncodeToString(hash.Sum(nil)),
		DownloadedAt: time.Now().UTC(),
		ETag:         resp.Header.Get("ETag"),
		Size:         written,
	}
	m.log.Info("Download completed", "bytes", written, "sha256", meta.SHA256[:16], "duration", time.Since(start))
	return meta, nil
}

// waitForDownload polls until another instance has produced the dataset
func (m *Manager) waitForDownload(ctx context.Context) error {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	timeout := time.After(lockWaitTimeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return errors.New("timeout waiting for download by other instance")
		case <-ticker.C:
			if _, err := os.Stat(m.parquetPath); err == nil {
				m.log.Info("Dataset now available after other instance completed")
				return nil
			}
		}
	}
}

func (m *Manager) loadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(m.metadataPath)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *Manager) saveMetadata(meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.metadataPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.metadataPath, data, 0o644)
}

// acquireLock creates the lock file exclusively; it fails if the file already exists
func acquireLock(lockPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}

func releaseLock(f *os.File, lockPath string) {
	_ = f.Close()
	_ = os.Remove(lockPath)
}
