// Package main hosts the oktabot CLI.
//
// `oktabot run` drives one project through the pipeline, interactively or
// from a weekly guide (--guide). The remaining commands inspect and repair
// state: status, validate, verify, history, doctor, and config. The
// `oktabot stage ...` subcommands are the built-in stage programs that the
// default [stages.*] templates invoke through {self}.
package main
