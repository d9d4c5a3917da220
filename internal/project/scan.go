package project

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Summary describes a project found on disk.
type Summary struct {
	Name     string
	Dir      string
	Channel  string
	Steps    []string
	LastStep string
	Updated  time.Time
}

// Complete reports whether the project has been published.
func (s Summary) Complete() bool {
	for _, step := range s.Steps {
		if step == StepUpload {
			return true
		}
	}
	return false
}

// List returns every project directory under channelsDir/<channelSlug>, most
// recently updated first. A missing channel folder yields no projects.
func List(logger *slog.Logger, channelsDir, channelSlug string) ([]Summary, error) {
	channelDir := filepath.Join(channelsDir, channelSlug)
	entries, err := os.ReadDir(channelDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read channel folder %s: %w", channelDir, err)
	}
	var out []Summary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(channelDir, entry.Name())
		statusPath := filepath.Join(dir, StatusFile)
		status := LoadStatus(logger, statusPath)
		summary := Summary{
			Name:     entry.Name(),
			Dir:      dir,
			Channel:  channelSlug,
			Steps:    status.Steps(),
			LastStep: status.Last(),
		}
		if info, err := os.Stat(statusPath); err == nil {
			summary.Updated = info.ModTime()
		} else if info, err := entry.Info(); err == nil {
			summary.Updated = info.ModTime()
		}
		out = append(out, summary)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Updated.Equal(out[j].Updated) {
			return out[i].Name < out[j].Name
		}
		return out[i].Updated.After(out[j].Updated)
	})
	return out, nil
}

// ScanIncomplete returns projects that have started but not been uploaded.
func ScanIncomplete(logger *slog.Logger, channelsDir, channelSlug string) ([]Summary, error) {
	all, err := List(logger, channelsDir, channelSlug)
	if err != nil {
		return nil, err
	}
	var out []Summary
	for _, summary := range all {
		if len(summary.Steps) > 0 && !summary.Complete() {
			out = append(out, summary)
		}
	}
	return out, nil
}
