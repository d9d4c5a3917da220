package plan

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	requiredTopLevel   = []string{"story_structure", "youtube_metadata", "ffmpeg_settings"}
	requiredSegmentKey = []string{"segment_id", "text", "visual_prompt"}
)

// Check inspects raw plan JSON and returns one issue string per structural
// problem. An empty result means the plan is structurally sound.
func Check(raw []byte) []string {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return []string{fmt.Sprintf("Invalid JSON in project file: %v", err)}
	}

	var issues []string
	for _, key := range requiredTopLevel {
		if _, ok := doc[key]; !ok {
			issues = append(issues, "Missing required key in project file: "+key)
		}
	}

	story, _ := doc["story_structure"].(map[string]any)
	seen := map[string]struct{}{}
	for _, name := range SectionKeys {
		value, ok := story[name]
		if !ok {
			issues = append(issues, "Missing story section: "+name)
			continue
		}
		section, _ := value.(map[string]any)
		paragraphs, ok := section["paragraphs"].([]any)
		if !ok {
			issues = append(issues, "Missing paragraphs in section: "+name)
			continue
		}
		for _, p := range paragraphs {
			paragraph, _ := p.(map[string]any)
			segments, ok := paragraph["segments"].([]any)
			if !ok {
				issues = append(issues, "Missing segments in paragraph: "+idOr(paragraph, "paragraph_id"))
				continue
			}
			for _, s := range segments {
				segment, _ := s.(map[string]any)
				for _, key := range requiredSegmentKey {
					if _, ok := segment[key]; !ok {
						issues = append(issues, fmt.Sprintf("Missing %s in segment: %s", key, idOr(segment, "segment_id")))
					}
				}
				if id, ok := segment["segment_id"].(string); ok && id != "" {
					if !plainFileName(id) {
						issues = append(issues, "Invalid segment_id (must be a plain file name): "+id)
					}
					if _, dup := seen[id]; dup {
						issues = append(issues, "Duplicate segment_id: "+id)
					}
					seen[id] = struct{}{}
				}
			}
		}
	}
	return issues
}

// plainFileName reports whether id can name a file inside the project
// directory without escaping it.
func plainFileName(id string) bool {
	if id == "." || id == ".." || strings.Contains(id, "..") {
		return false
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return false
	}
	return filepath.Base(id) == id
}

func idOr(obj map[string]any, key string) string {
	if id, ok := obj[key].(string); ok && id != "" {
		return id
	}
	return "unknown"
}
