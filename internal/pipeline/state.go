package pipeline

import (
	"time"

	"sublingo/internal/config"
)

// Step names, in fixed graph order.
const (
	StepAudioExtraction = "audio_extraction"
	StepSpeechToText    = "speech_to_text"
	StepTranslation     = "translation"
	StepTermProcessing  = "term_processing"
	StepSubtitleMerge   = "subtitle_merge"
	StepTextToSpeech    = "text_to_speech"
	StepVideoMuxing     = "video_muxing"
)

// StepNames returns every step name in graph order.
func StepNames() []string {
	return []string{
		StepAudioExtraction,
		StepSpeechToText,
		StepTranslation,
		StepTermProcessing,
		StepSubtitleMerge,
		StepTextToSpeech,
		StepVideoMuxing,
	}
}

// Status is the lifecycle state of one step execution.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// StepResult records one step's outcome. It is created by the step runner
// when a step finishes and never mutated afterward.
type StepResult struct {
	StepName     string         `json:"step_name"`
	Status       Status         `json:"status"`
	OutputPath   string         `json:"output_path,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Duration     time.Duration  `json:"duration"`
	CreatedAt    time.Time      `json:"created_at"`
}

// State is the mutable record threaded through every step of one run.
// Each artifact path has exactly one writing step; later steps only read.
type State struct {
	RunID            string        `json:"run_id"`
	InputVideoPath   string        `json:"input_video_path"`
	WorkingDirectory string        `json:"working_directory"`
	OutputPath       string        `json:"output_path"`
	Config           config.Config `json:"config"`

	AudioExtractionResult *StepResult `json:"audio_extraction_result,omitempty"`
	SpeechToTextResult    *StepResult `json:"speech_to_text_result,omitempty"`
	TranslationResult     *StepResult `json:"translation_result,omitempty"`
	TermProcessingResult  *StepResult `json:"term_processing_result,omitempty"`
	SubtitleMergeResult   *StepResult `json:"subtitle_merge_result,omitempty"`
	TextToSpeechResult    *StepResult `json:"text_to_speech_result,omitempty"`
	VideoMuxingResult     *StepResult `json:"video_muxing_result,omitempty"`

	ExtractedAudioPath   string `json:"extracted_audio_path,omitempty"`
	SourceSRTPath        string `json:"source_srt_path,omitempty"`
	TranslatedSRTPath    string `json:"translated_srt_path,omitempty"`
	TermProcessedSRTPath string `json:"term_processed_srt_path,omitempty"`
	MergedSRTPath        string `json:"merged_srt_path,omitempty"`
	TTSTimelinePath      string `json:"tts_timeline_path,omitempty"`
	FinalVideoPath       string `json:"final_video_path,omitempty"`

	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	ShouldContinue bool `json:"should_continue"`

	// Execution bookkeeping owned by the step runner.
	RetryCount  int    `json:"retry_count"`
	CurrentStep string `json:"current_step,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// NewState constructs the initial state for one run.
func NewState(runID, inputPath, workingDir, outputPath string, cfg config.Config) *State {
	return &State{
		RunID:            runID,
		InputVideoPath:   inputPath,
		WorkingDirectory: workingDir,
		OutputPath:       outputPath,
		Config:           cfg,
		Errors:           []string{},
		Warnings:         []string{},
		ShouldContinue:   true,
		StartedAt:        time.Now().UTC(),
	}
}

// Result returns the recorded result for a step name, or nil when the step
// has not finished.
func (s *State) Result(stepName string) *StepResult {
	switch stepName {
	case StepAudioExtraction:
		return s.AudioExtractionResult
	case StepSpeechToText:
		return s.SpeechToTextResult
	case StepTranslation:
		return s.TranslationResult
	case StepTermProcessing:
		return s.TermProcessingResult
	case StepSubtitleMerge:
		return s.SubtitleMergeResult
	case StepTextToSpeech:
		return s.TextToSpeechResult
	case StepVideoMuxing:
		return s.VideoMuxingResult
	default:
		return nil
	}
}

// Results returns the recorded step results in graph order, skipping steps
// that never ran.
func (s *State) Results() []*StepResult {
	results := make([]*StepResult, 0, 7)
	for _, name := range StepNames() {
		if result := s.Result(name); result != nil {
			results = append(results, result)
		}
	}
	return results
}

func (s *State) setResult(stepName string, result *StepResult) {
	switch stepName {
	case StepAudioExtraction:
		s.AudioExtractionResult = result
	case StepSpeechToText:
		s.SpeechToTextResult = result
	case StepTranslation:
		s.TranslationResult = result
	case StepTermProcessing:
		s.TermProcessingResult = result
	case StepSubtitleMerge:
		s.SubtitleMergeResult = result
	case StepTextToSpeech:
		s.TextToSpeechResult = result
	case StepVideoMuxing:
		s.VideoMuxingResult = result
	}
}

// artifactFor maps a step to the artifact path it owns, for recording on
// its StepResult.
func (s *State) artifactFor(stepName string) string {
	switch stepName {
	case StepAudioExtraction:
		return s.ExtractedAudioPath
	case StepSpeechToText:
		return s.SourceSRTPath
	case StepTranslation:
		return s.TranslatedSRTPath
	case StepTermProcessing:
		return s.TermProcessedSRTPath
	case StepSubtitleMerge:
		return s.MergedSRTPath
	case StepTextToSpeech:
		return s.TTSTimelinePath
	case StepVideoMuxing:
		return s.FinalVideoPath
	default:
		return ""
	}
}

// AddError appends to the run's error log. Entries are never cleared.
func (s *State) AddError(message string) {
	s.Errors = append(s.Errors, message)
}

// AddWarning appends to the run's warning log.
func (s *State) AddWarning(message string) {
	s.Warnings = append(s.Warnings, message)
}

// Succeeded reports whether the run finished with every executed step
// completing cleanly.
func (s *State) Succeeded() bool {
	return s.ShouldContinue && len(s.Errors) == 0
}
