// Package services defines shared utilities consumed by the pipeline producer,
// the built-in stage programs, and the external service clients.
//
// Key responsibilities:
//   - Context helpers that stamp project directories, channels, step names, and
//     run identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry a marker
//     the error classifier can map to a retry category.
//
// Service clients (LLM, image generation, speech synthesis, video upload) live
// in subpackages and stay free of pipeline state.
package services
