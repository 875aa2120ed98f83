// Package ffmpeg shells out to the ffmpeg binary for the two container
// operations the pipeline needs: pulling a normalized mono WAV out of a
// video and muxing a finished subtitle track back in.
package ffmpeg
