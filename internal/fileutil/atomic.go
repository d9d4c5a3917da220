package fileutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// renameRetryDelay is the pause before the single rename retry.
const renameRetryDelay = 100 * time.Millisecond

// WriteJSON serializes v as indented JSON and writes it atomically to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json for %s: %w", path, err)
	}
	data = append(data, '\n')
	return WriteFile(path, data)
}

// WriteFile writes data atomically to path.
func WriteFile(path string, data []byte) error {
	return WriteReader(path, bytesReader(data))
}

// WriteReader streams r into a sibling temp file and renames it over path.
// On any failure the temp file is removed and path is left untouched.
func WriteReader(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		time.Sleep(renameRetryDelay)
		if retryErr := os.Rename(tmpPath, path); retryErr != nil {
			cleanup()
			return fmt.Errorf("atomic rename for %s: %w", path, retryErr)
		}
	}
	return nil
}

// ReadJSON decodes path into dst. Missing or corrupt files return false and are
// logged; dst must be treated as unset when false is returned.
func ReadJSON(logger *slog.Logger, path string, dst any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if logger != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("json file absent", slog.String("path", path))
			} else {
				logger.Warn("json file unreadable", slog.String("path", path), slog.Any("error", err))
			}
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		if logger != nil {
			logger.Warn("json file corrupt; ignoring", slog.String("path", path), slog.Any("error", err))
		}
		return false
	}
	return true
}
