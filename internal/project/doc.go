// Package project owns the on-disk layout of one video project: its fixed
// file names, the ordered record of completed pipeline steps, the content
// hashes that guard resumption, and helpers to find and reset projects.
package project
