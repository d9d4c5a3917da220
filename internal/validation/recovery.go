package validation

// SuggestRecovery returns one remediation hint per issue kind present, in a
// fixed order. The hints are advisory; nothing is acted on automatically.
func SuggestRecovery(issues []Issue) []string {
	present := map[Kind]bool{}
	for _, issue := range issues {
		present[issue.Kind] = true
	}
	var hints []string
	if present[KindAudio] {
		hints = append(hints, "Regenerate narration: remove asset_production from status.json or run 'oktabot stage narrate' for the project")
	}
	if present[KindImage] {
		hints = append(hints, "Regenerate images: remove asset_production from status.json or run 'oktabot stage images' for the project")
	}
	if present[KindMusic] {
		hints = append(hints, "Populate the music folder (paths.music_dir) with at least one .mp3, .wav, .m4a, or .aac track")
	}
	if present[KindPlan] {
		hints = append(hints, "Regenerate the plan: remove direction from status.json and rerun")
	}
	return hints
}
