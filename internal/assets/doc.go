// Package assets verifies generated media files before they are reused.
//
// Checks are structural only: the file exists, is not trivially small, decodes,
// meets a minimum resolution or duration, and is not older than the configured
// age. Passing files are reused so paid generation calls are not repeated.
package assets
