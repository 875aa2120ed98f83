package pipeline

import "strings"

// NextAfterTranslation decides the step following translation: term
// processing runs only when enabled and a dictionary is configured.
func NextAfterTranslation(state *State) string {
	if state.Config.Pipeline.EnableTermProcessing && strings.TrimSpace(state.Config.Pipeline.TermDictionaryPath) != "" {
		return StepTermProcessing
	}
	return StepSubtitleMerge
}

// NextAfterSubtitleMerge decides the step following subtitle merge:
// text-to-speech runs only when dubbing is enabled.
func NextAfterSubtitleMerge(state *State) string {
	if state.Config.Pipeline.EnableTTS {
		return StepTextToSpeech
	}
	return StepVideoMuxing
}
