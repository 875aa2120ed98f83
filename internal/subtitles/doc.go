// Package subtitles implements SRT parsing and composition, bilingual cue
// merging, and terminology substitution over translated cues.
package subtitles
