// Package stages implements the built-in stage programs behind
// `oktabot stage <name>`. The orchestrator runs them as opaque subprocesses
// through the configured command templates; each one throttles its own API
// calls and retries classified failures before giving up.
//
// Narration and image stages only produce what is missing: a segment whose
// file already verifies is skipped, so re-running after a partial failure
// does not repeat paid requests.
package stages
