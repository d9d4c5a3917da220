// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes streams and container metadata. Prober
// adapts it to the duration lookup used when verifying narration files.
package ffprobe
