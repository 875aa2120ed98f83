package steps

import (
	"context"
	"log/slog"
	"path/filepath"

	"sublingo/internal/logging"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
	"sublingo/internal/subtitles"
)

// TermProcessing rewrites translated subtitle text using the configured
// domain-term dictionary. The router only routes here when a dictionary is
// configured.
type TermProcessing struct {
	logger *slog.Logger
}

// NewTermProcessing constructs the term substitution step.
func NewTermProcessing(logger *slog.Logger) *TermProcessing {
	return &TermProcessing{logger: logging.NewComponentLogger(logger, pipeline.StepTermProcessing)}
}

func (s *TermProcessing) Name() string { return pipeline.StepTermProcessing }

// Execute reads TranslatedSRTPath and writes TermProcessedSRTPath; the
// translation artifact is left untouched.
func (s *TermProcessing) Execute(ctx context.Context, state *pipeline.State) error {
	if state.TranslatedSRTPath == "" {
		return services.Wrap(services.ErrNotFound, s.Name(), "", "no translated subtitles available", nil)
	}

	table, err := subtitles.LoadTermTable(state.Config.Pipeline.TermDictionaryPath)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, s.Name(), "load_dictionary", "term dictionary could not be loaded", err)
	}

	cues, err := subtitles.ParseFile(state.TranslatedSRTPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, s.Name(), "parse", "translated subtitles are malformed", err)
	}

	replaced := table.ApplyToCues(cues)

	outputPath := filepath.Join(state.WorkingDirectory, "translated_terms.srt")
	if err := subtitles.WriteFile(outputPath, cues); err != nil {
		return services.Wrap(services.ErrValidation, s.Name(), "write", "term-processed subtitles could not be written", err)
	}

	if s.logger != nil {
		s.logger.Info("applied term dictionary",
			logging.Int("terms", table.Len()),
			logging.Int("replacements", replaced),
		)
	}

	state.TermProcessedSRTPath = outputPath
	return nil
}

// Metadata reports the dictionary in effect.
func (s *TermProcessing) Metadata(state *pipeline.State) map[string]any {
	return map[string]any{
		"dictionary": state.Config.Pipeline.TermDictionaryPath,
	}
}
