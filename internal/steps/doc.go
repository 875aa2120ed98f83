// Package steps provides the concrete pipeline step implementations. Each
// step wires one external collaborator (ffmpeg, the inference CLI, the TTS
// synthesizer) into the workflow contract: read declared inputs from the
// state, write the single artifact path the step owns, and classify
// failures through the services sentinels.
package steps
