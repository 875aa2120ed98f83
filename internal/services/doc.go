// Package services defines shared utilities consumed by the pipeline steps
// and external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and step names for logging.
//   - Structured error markers plus the Wrap helper that classify step
//     failures as retryable or terminal.
//
// Use these helpers when wiring new step logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
