// Package errclass maps failures onto the fixed set of error types that drive
// retry decisions across the pipeline.
//
// Classification is a pure function of the error message and a broad Category
// derived from the Go error chain. Keyword matches win over the category so a
// rate-limit response that also says "connection reset" is still treated as a
// quota failure. Anything unrecognised lands in CodeBug, which is never
// retried.
package errclass
