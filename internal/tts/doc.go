// Package tts synthesizes speech clips for translated subtitle cues via an
// external TTS CLI, with a Badger-backed cache so repeated runs over the
// same text do not pay for synthesis twice.
package tts
