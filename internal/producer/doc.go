// Package producer drives one video project through the fixed pipeline:
// scriptwriting, direction, asset production, the validation gate, editing,
// and upload.
//
// Completion is tracked in the project's status.json and every completed
// step's outputs are hashed into integrity.json. A run resumes after the last
// completed step; when a recorded hash no longer matches disk the project is
// reset (scheduled mode) or the operator is asked first (manual mode). The
// gate has no completion flag and runs on every invocation.
//
// Each step is an external command from [stages.*], run through
// stageexec.Runner under a retry.Handler. Failures surface as *StageError or
// *GateError; nothing in this package exits the process.
package producer
