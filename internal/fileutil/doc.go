// Package fileutil provides crash-safe file persistence and streaming hashes.
//
// Writers stage data in a sibling temp file, fsync it, and rename it over the
// destination, so readers observe either the previous or the new content and
// never a partial write. ReadJSON reports absence instead of failing, which
// lets callers fall back to defaults with a single boolean check.
package fileutil
