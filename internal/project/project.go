package project

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"oktabot/internal/fileutil"
	"oktabot/internal/textutil"
)

// Fixed file layout inside a project directory.
const (
	ScriptFile    = "script.txt"
	PlanFile      = "project.json"
	AudioDir      = "audio"
	ImageDir      = "images"
	VideoFile     = "final_video.mp4"
	StatusFile    = "status.json"
	IntegrityFile = "integrity.json"
	MetaFile      = "project_meta.json"
)

// SlugMaxLength bounds project directory names.
const SlugMaxLength = 50

// Project identifies one video project and where it lives.
type Project struct {
	Channel      string
	ChannelSlug  string
	Topic        string
	TargetLength int
	Dir          string
}

// Meta is persisted to project_meta.json so resumed projects keep their
// inputs.
type Meta struct {
	Channel      string    `json:"channel"`
	ChannelSlug  string    `json:"channel_slug"`
	Topic        string    `json:"topic"`
	TargetLength int       `json:"target_length"`
	CreatedAt    time.Time `json:"created_at"`
}

// Slug converts a topic into a directory name.
func Slug(topic string) string {
	return textutil.Slugify(topic, SlugMaxLength)
}

// New returns the project for topic under channelsDir/<channelSlug>.
func New(channelsDir, channel, channelSlug, topic string, targetLength int) *Project {
	return &Project{
		Channel:      channel,
		ChannelSlug:  channelSlug,
		Topic:        strings.TrimSpace(topic),
		TargetLength: targetLength,
		Dir:          filepath.Join(channelsDir, channelSlug, Slug(topic)),
	}
}

// Open loads a project from an existing directory. Missing metadata is not an
// error; fields fall back to what the directory path implies.
func Open(logger *slog.Logger, dir string) (*Project, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open project %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open project %s: not a directory", dir)
	}
	p := &Project{
		ChannelSlug: filepath.Base(filepath.Dir(dir)),
		Topic:       filepath.Base(dir),
		Dir:         dir,
	}
	var meta Meta
	if fileutil.ReadJSON(logger, p.MetaPath(), &meta) {
		p.Channel = meta.Channel
		if meta.ChannelSlug != "" {
			p.ChannelSlug = meta.ChannelSlug
		}
		if meta.Topic != "" {
			p.Topic = meta.Topic
		}
		p.TargetLength = meta.TargetLength
	}
	return p, nil
}

// Ensure creates the project directory.
func (p *Project) Ensure() error {
	if p == nil || p.Dir == "" {
		return errors.New("project directory not set")
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}
	return nil
}

// SaveMeta writes project_meta.json.
func (p *Project) SaveMeta(now time.Time) error {
	return fileutil.WriteJSON(p.MetaPath(), Meta{
		Channel:      p.Channel,
		ChannelSlug:  p.ChannelSlug,
		Topic:        p.Topic,
		TargetLength: p.TargetLength,
		CreatedAt:    now.UTC(),
	})
}

func (p *Project) ScriptPath() string    { return filepath.Join(p.Dir, ScriptFile) }
func (p *Project) PlanPath() string      { return filepath.Join(p.Dir, PlanFile) }
func (p *Project) AudioDir() string      { return filepath.Join(p.Dir, AudioDir) }
func (p *Project) ImageDir() string      { return filepath.Join(p.Dir, ImageDir) }
func (p *Project) VideoPath() string     { return filepath.Join(p.Dir, VideoFile) }
func (p *Project) StatusPath() string    { return filepath.Join(p.Dir, StatusFile) }
func (p *Project) IntegrityPath() string { return filepath.Join(p.Dir, IntegrityFile) }
func (p *Project) MetaPath() string      { return filepath.Join(p.Dir, MetaFile) }

// Name is the project directory name.
func (p *Project) Name() string { return filepath.Base(p.Dir) }

// Rel converts an absolute path inside the project to the slash-separated form
// stored in integrity.json.
func (p *Project) Rel(path string) string {
	rel, err := filepath.Rel(p.Dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Abs resolves a path recorded by Rel.
func (p *Project) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Dir, filepath.FromSlash(rel))
}

// Reset removes everything inside the project directory and recreates it
// empty. Callers hold the in-memory records and must clear them too.
func (p *Project) Reset() error {
	if p == nil || p.Dir == "" {
		return errors.New("project directory not set")
	}
	if err := os.RemoveAll(p.Dir); err != nil {
		return fmt.Errorf("reset project %s: %w", p.Dir, err)
	}
	return p.Ensure()
}
