package youtube

import (
	"fmt"
	"os"
	"strings"

	"oktabot/internal/plan"
	"oktabot/internal/services"
)

// DefaultCategoryID is Education.
const DefaultCategoryID = "27"

// Categories maps YouTube category names to their numeric ids.
var Categories = map[string]string{
	"Film & Animation":     "1",
	"Autos & Vehicles":     "2",
	"Music":                "10",
	"Pets & Animals":       "15",
	"Sports":               "17",
	"Gaming":               "20",
	"People & Blogs":       "22",
	"Comedy":               "23",
	"Entertainment":        "24",
	"News & Politics":      "25",
	"Howto & Style":        "26",
	"Education":            "27",
	"Science & Technology": "28",
}

// PrivacyStatuses lists the accepted privacy values.
var PrivacyStatuses = []string{"private", "public", "unlisted"}

// Defaults fill metadata fields the plan leaves empty.
type Defaults struct {
	Category string
	Privacy  string
}

// Metadata is the validated upload body.
type Metadata struct {
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	CategoryName  string
	PrivacyStatus string
}

// CategoryID resolves a category name, falling back to Education.
func CategoryID(name string) string {
	if id, ok := Categories[strings.TrimSpace(name)]; ok {
		return id
	}
	return DefaultCategoryID
}

// PrepareMetadata validates the plan's youtube_metadata and applies defaults.
func PrepareMetadata(meta plan.YouTubeMetadata, defaults Defaults) (Metadata, error) {
	title := strings.TrimSpace(meta.Title)
	description := strings.TrimSpace(meta.Description)
	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return Metadata{}, services.Wrap(services.ErrValidation, "upload", "metadata",
			"required youtube_metadata field(s) empty: "+strings.Join(missing, ", "), nil)
	}

	category := strings.TrimSpace(meta.Category)
	if category == "" {
		category = defaults.Category
	}
	privacy := strings.ToLower(strings.TrimSpace(meta.PrivacyStatus))
	if privacy == "" {
		privacy = strings.ToLower(strings.TrimSpace(defaults.Privacy))
	}
	valid := false
	for _, p := range PrivacyStatuses {
		if privacy == p {
			valid = true
			break
		}
	}
	if !valid {
		return Metadata{}, services.Wrap(services.ErrValidation, "upload", "metadata",
			fmt.Sprintf("invalid privacy status %q (want one of %s)", privacy, strings.Join(PrivacyStatuses, ", ")), nil)
	}

	tags := make([]string, 0, len(meta.Tags))
	for _, tag := range meta.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return Metadata{
		Title:         title,
		Description:   description,
		Tags:          tags,
		CategoryID:    CategoryID(category),
		CategoryName:  category,
		PrivacyStatus: privacy,
	}, nil
}

// CheckVideoFile verifies the rendered video exists and is within the size
// bounds. Zero bounds disable the corresponding check.
func CheckVideoFile(path string, minMB, maxMB int) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "upload", "video", "rendered video missing", err)
	}
	size := info.Size()
	if size == 0 {
		return 0, services.Wrap(services.ErrValidation, "upload", "video", "rendered video is empty: "+path, nil)
	}
	sizeMB := float64(size) / (1024 * 1024)
	if minMB > 0 && sizeMB < float64(minMB) {
		return size, services.Wrap(services.ErrValidation, "upload", "video",
			fmt.Sprintf("rendered video too small: %.2fMB (min %dMB)", sizeMB, minMB), nil)
	}
	if maxMB > 0 && sizeMB > float64(maxMB) {
		return size, services.Wrap(services.ErrValidation, "upload", "video",
			fmt.Sprintf("rendered video too large: %.2fMB (max %dMB)", sizeMB, maxMB), nil)
	}
	return size, nil
}
