// Package plan models the production plan produced by the direction stage and
// derives the per-segment assets later stages must produce.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"oktabot/internal/services"
)

// Section keys in the order segments are narrated.
const (
	SectionIntro       = "intro"
	SectionDevelopment = "development"
	SectionConclusion  = "conclusion"
)

// SectionKeys lists the required story sections in narrative order.
var SectionKeys = []string{SectionIntro, SectionDevelopment, SectionConclusion}

// AspectRatios lists the image aspect ratios the image stage accepts.
var AspectRatios = []string{"1:1", "4:3", "3:4", "16:9", "9:16"}

// DefaultAspectRatio is used when a segment names an unsupported ratio.
const DefaultAspectRatio = "16:9"

// Plan is the production plan for one video.
type Plan struct {
	FFmpegSettings  FFmpegSettings  `json:"ffmpeg_settings"`
	YouTubeMetadata YouTubeMetadata `json:"youtube_metadata"`
	StoryStructure  StoryStructure  `json:"story_structure"`
}

// FFmpegSettings carries encoder hints for the editing stage.
type FFmpegSettings struct {
	OutputFilename string        `json:"output_filename"`
	VideoSettings  VideoSettings `json:"video_settings"`
	AudioSettings  AudioSettings `json:"audio_settings"`
}

// VideoSettings are the target video encoding parameters.
type VideoSettings struct {
	Codec      string `json:"codec"`
	Bitrate    string `json:"bitrate"`
	FPS        int    `json:"fps"`
	Resolution string `json:"resolution"`
}

// AudioSettings are the target audio encoding parameters.
type AudioSettings struct {
	Codec   string `json:"codec"`
	Bitrate string `json:"bitrate"`
}

// YouTubeMetadata is what the upload stage publishes.
type YouTubeMetadata struct {
	Channel       string   `json:"channel"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Narrator      string   `json:"narrator"`
	MusicStyle    string   `json:"music_style"`
	Tags          []string `json:"tags"`
	Category      string   `json:"category"`
	PrivacyStatus string   `json:"privacy_status"`
}

// StoryStructure holds the three narrative sections.
type StoryStructure struct {
	Intro       Section `json:"intro"`
	Development Section `json:"development"`
	Conclusion  Section `json:"conclusion"`
}

// Section is one narrative section.
type Section struct {
	SectionID  string      `json:"section_id"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Paragraph groups consecutive segments.
type Paragraph struct {
	ParagraphID string    `json:"paragraph_id"`
	Segments    []Segment `json:"segments"`
}

// Segment is the smallest unit: one narration clip and one image.
type Segment struct {
	SegmentID        string         `json:"segment_id"`
	Text             string         `json:"text"`
	VisualPrompt     string         `json:"visual_prompt"`
	AspectRatio      string         `json:"aspect_ratio,omitempty"`
	InternalEffect   InternalEffect `json:"internal_effect"`
	TransitionEffect string         `json:"transition_effect,omitempty"`
}

// InternalEffect is the camera motion applied to a segment's image.
type InternalEffect struct {
	EffectType string `json:"effect_type"`
	Direction  string `json:"direction"`
	Speed      string `json:"speed"`
}

// Assets are the file names a plan requires, relative to the asset folders.
type Assets struct {
	Audio  []string
	Images []string
}

// Load reads and structurally checks the plan at path. Structural problems
// are reported as a validation error listing every issue.
func Load(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a plan after checking its structure.
func Parse(raw []byte) (*Plan, error) {
	if issues := Check(raw); len(issues) > 0 {
		return nil, services.Wrap(services.ErrValidation, "plan", "check", strings.Join(issues, "; "), nil)
	}
	var p Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &p, nil
}

// Sections returns the story sections keyed in narrative order.
func (p *Plan) Sections() []Section {
	return []Section{p.StoryStructure.Intro, p.StoryStructure.Development, p.StoryStructure.Conclusion}
}

// Segments returns every segment in narrative order.
func (p *Plan) Segments() []Segment {
	var out []Segment
	for _, section := range p.Sections() {
		for _, paragraph := range section.Paragraphs {
			out = append(out, paragraph.Segments...)
		}
	}
	return out
}

// RequiredAssets derives the expected narration and image files. It is
// recomputed on every call.
func (p *Plan) RequiredAssets() Assets {
	var assets Assets
	for _, segment := range p.Segments() {
		id := strings.TrimSpace(segment.SegmentID)
		if id == "" {
			continue
		}
		assets.Audio = append(assets.Audio, AudioFile(id))
		assets.Images = append(assets.Images, ImageFile(id))
	}
	return assets
}

// AudioFile is the narration file name for a segment.
func AudioFile(segmentID string) string { return segmentID + ".wav" }

// ImageFile is the image file name for a segment.
func ImageFile(segmentID string) string { return segmentID + ".png" }

// NormalizedAspectRatio returns the segment's ratio, or DefaultAspectRatio when
// it is missing or unsupported. The second result is false when a fallback was used.
func (s Segment) NormalizedAspectRatio() (string, bool) {
	ratio := strings.TrimSpace(s.AspectRatio)
	for _, valid := range AspectRatios {
		if ratio == valid {
			return ratio, true
		}
	}
	return DefaultAspectRatio, false
}
