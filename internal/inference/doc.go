// Package inference shells out to the seamless_communication CLI for
// speech-to-text transcription and subtitle translation.
package inference
