package testsupport

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WritePNG writes a decodable PNG of the given dimensions with noisy pixels
// so the encoded file is not trivially small.
func WritePNG(t testing.TB, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x*31 + y*17 + x*y) % 251)
			img.Set(x, y, color.RGBA{R: v, G: 255 - v, B: v ^ 0x5a, A: 255})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// WriteScript writes an executable shell script with the given body.
func WriteScript(t testing.TB, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
}

// SegmentIDs returns n segment identifiers spread over the three sections.
func SegmentIDs(n int) []string {
	prefixes := []string{"I", "D", "C"}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, fmt.Sprintf("%s-P1-S%d", prefixes[i%3], i/3+1))
	}
	return ids
}

// WritePlan writes a structurally valid plan containing the given segments.
// Segments are distributed across intro, development, and conclusion in the
// same pattern SegmentIDs produces.
func WritePlan(t testing.TB, path string, segmentIDs ...string) {
	t.Helper()

	sections := map[string][]map[string]any{}
	keys := []string{"intro", "development", "conclusion"}
	for i, id := range segmentIDs {
		key := keys[i%3]
		sections[key] = append(sections[key], map[string]any{
			"segment_id":    id,
			"text":          "narration for " + id,
			"visual_prompt": "picture of " + id,
			"aspect_ratio":  "16:9",
		})
	}
	story := map[string]any{}
	for i, key := range keys {
		segments := sections[key]
		if segments == nil {
			segments = []map[string]any{}
		}
		story[key] = map[string]any{
			"section_id": string("IDC"[i]),
			"paragraphs": []any{map[string]any{
				"paragraph_id": fmt.Sprintf("%c-P1", "IDC"[i]),
				"segments":     segments,
			}},
		}
	}
	doc := map[string]any{
		"ffmpeg_settings":  map[string]any{"output_filename": "final_video.mp4"},
		"youtube_metadata": map[string]any{"title": "Test video", "description": "Test description", "tags": []string{"test"}, "category": "Education", "privacy_status": "private"},
		"story_structure":  story,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal plan: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write plan %s: %v", path, err)
	}
}
