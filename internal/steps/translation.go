package steps

import (
	"context"
	"log/slog"
	"path/filepath"

	"sublingo/internal/inference"
	"sublingo/internal/logging"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
)

// Translator translates subtitle text while preserving cue timing.
type Translator interface {
	Translate(ctx context.Context, req inference.TranslateRequest) error
}

// Translation translates the source-language SRT into the target language.
type Translation struct {
	translator Translator
	logger     *slog.Logger
}

// NewTranslation constructs the translation step.
func NewTranslation(translator Translator, logger *slog.Logger) *Translation {
	return &Translation{
		translator: translator,
		logger:     logging.NewComponentLogger(logger, pipeline.StepTranslation),
	}
}

func (s *Translation) Name() string { return pipeline.StepTranslation }

// Execute reads SourceSRTPath and writes TranslatedSRTPath.
func (s *Translation) Execute(ctx context.Context, state *pipeline.State) error {
	if state.SourceSRTPath == "" {
		return services.Wrap(services.ErrNotFound, s.Name(), "", "no transcript available", nil)
	}

	outputPath := filepath.Join(state.WorkingDirectory, "translated.srt")
	err := s.translator.Translate(ctx, inference.TranslateRequest{
		InputSRTPath:   state.SourceSRTPath,
		OutputSRTPath:  outputPath,
		Model:          state.Config.Models.TranslationModel,
		Device:         state.Config.Models.Device,
		SourceLanguage: state.Config.Languages.Source,
		TargetLanguage: state.Config.Languages.Target,
	})
	if err != nil {
		return err
	}

	state.TranslatedSRTPath = outputPath
	return nil
}

// Metadata reports the translation pair and model.
func (s *Translation) Metadata(state *pipeline.State) map[string]any {
	return map[string]any{
		"model":           state.Config.Models.TranslationModel,
		"source_language": state.Config.Languages.Source,
		"target_language": state.Config.Languages.Target,
	}
}
