// Package llm provides an OpenRouter-compatible chat completion client used
// by the script and direction stages.
//
// # Entry Points
//
// NewClient: construct a client from Config (FromConfig converts [llm]).
// Client.Complete: plain-text completion (scripts).
// Client.CompleteJSON: JSON-mode completion (production plans).
// Client.HealthCheck: verify the API key and model with a tiny request.
// DecodeJSON, ExtractJSON: tolerant handling of fenced or chatty JSON answers.
//
// # Failures
//
// Each call makes exactly one HTTP request. Retrying is the caller's job;
// error messages are worded so the shared classifier can recognise quota
// (429), upstream outages (408/5xx), and transport timeouts.
package llm
