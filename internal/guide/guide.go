// Package guide reads the weekly task file that drives scheduled runs. The
// file maps lower-case weekday names to the video to produce that day. YAML
// and JSON are both accepted.
package guide

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Task is one scheduled production.
type Task struct {
	ChannelName     string `yaml:"channel_name" json:"channel_name"`
	VideoTopic      string `yaml:"video_topic" json:"video_topic"`
	TargetCharCount int    `yaml:"target_char_count" json:"target_char_count"`
}

// Guide maps weekday keys ("monday" ... "sunday") to tasks.
type Guide map[string]Task

var weekdays = map[string]struct{}{
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
}

// Load reads and validates a guide file.
func Load(path string) (Guide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weekly guide: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates guide content.
func Parse(data []byte) (Guide, error) {
	raw := map[string]Task{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse weekly guide: %w", err)
	}
	g := make(Guide, len(raw))
	var problems []string
	for key, task := range raw {
		day := strings.ToLower(strings.TrimSpace(key))
		if _, ok := weekdays[day]; !ok {
			problems = append(problems, fmt.Sprintf("%s: not a weekday", key))
			continue
		}
		task.ChannelName = strings.TrimSpace(task.ChannelName)
		task.VideoTopic = strings.TrimSpace(task.VideoTopic)
		if task.ChannelName == "" {
			problems = append(problems, day+": channel_name is required")
		}
		if task.VideoTopic == "" {
			problems = append(problems, day+": video_topic is required")
		}
		if task.TargetCharCount <= 0 {
			problems = append(problems, day+": target_char_count must be positive")
		}
		g[day] = task
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, errors.New("invalid weekly guide: " + strings.Join(problems, "; "))
	}
	return g, nil
}

// ForDay returns the task scheduled for the weekday of t.
func (g Guide) ForDay(t time.Time) (Task, bool) {
	task, ok := g[strings.ToLower(t.Weekday().String())]
	return task, ok
}
