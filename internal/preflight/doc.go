// Package preflight provides readiness checks for the directories, binaries,
// disk space, and services a pipeline run depends on.
//
// These checks run in two contexts:
//   - `oktabot run` calls RunAll before touching a project and refuses to
//     start when a required check fails.
//   - `oktabot doctor` prints every result as a table.
//
// The LLM check only runs when [preflight].check_llm is enabled, since it
// spends a request against the provider quota.
package preflight
