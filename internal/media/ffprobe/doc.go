// Package ffprobe wraps the ffprobe binary with a typed JSON decoder so
// callers can validate container contents before running the pipeline.
package ffprobe
