// Package pipeline implements the workflow execution core: a fixed graph
// of processing steps driven over a shared state record, with per-step
// retry, failure short-circuiting, and conditional routing around the
// optional term-processing and text-to-speech stages.
package pipeline
