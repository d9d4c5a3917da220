// Package textutil provides text helpers for turning channel names and video
// topics into filesystem-safe directory names.
//
// Slugify folds accents (so "Kıyamet Günü" becomes "kiyamet-gunu"), lowercases,
// and collapses everything that is not a letter or digit into single hyphens.
// Truncate shortens free text such as titles for table output.
package textutil
