package steps

import (
	"context"
	"log/slog"
	"path/filepath"

	"sublingo/internal/inference"
	"sublingo/internal/logging"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
	"sublingo/internal/subtitles"
)

// Transcriber turns an audio file into timed subtitles.
type Transcriber interface {
	Transcribe(ctx context.Context, req inference.TranscribeRequest) error
}

// SpeechToText transcribes the extracted audio into source-language SRT.
type SpeechToText struct {
	transcriber Transcriber
	logger      *slog.Logger
}

// NewSpeechToText constructs the transcription step.
func NewSpeechToText(transcriber Transcriber, logger *slog.Logger) *SpeechToText {
	return &SpeechToText{
		transcriber: transcriber,
		logger:      logging.NewComponentLogger(logger, pipeline.StepSpeechToText),
	}
}

func (s *SpeechToText) Name() string { return pipeline.StepSpeechToText }

// Execute reads ExtractedAudioPath and writes SourceSRTPath.
func (s *SpeechToText) Execute(ctx context.Context, state *pipeline.State) error {
	if state.ExtractedAudioPath == "" {
		return services.Wrap(services.ErrNotFound, s.Name(), "", "no extracted audio available", nil)
	}

	outputPath := filepath.Join(state.WorkingDirectory, "source.srt")
	err := s.transcriber.Transcribe(ctx, inference.TranscribeRequest{
		AudioPath:      state.ExtractedAudioPath,
		OutputSRTPath:  outputPath,
		Model:          state.Config.Models.STTModel,
		Device:         state.Config.Models.Device,
		SourceLanguage: state.Config.Languages.Source,
	})
	if err != nil {
		return err
	}

	state.SourceSRTPath = outputPath
	return nil
}

// Metadata reports the model used and the cue count of the transcript.
func (s *SpeechToText) Metadata(state *pipeline.State) map[string]any {
	metadata := map[string]any{
		"model":    state.Config.Models.STTModel,
		"language": state.Config.Languages.Source,
	}
	if cues, err := subtitles.ParseFile(state.SourceSRTPath); err == nil {
		metadata["cues"] = len(cues)
	}
	return metadata
}
