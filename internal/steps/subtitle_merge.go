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

// SubtitleMerge pairs the source and translated subtitle tracks into one
// bilingual SRT: source text on the first line of each cue, translation on
// the second, timing taken from the source track.
type SubtitleMerge struct {
	logger *slog.Logger
}

// NewSubtitleMerge constructs the merge step.
func NewSubtitleMerge(logger *slog.Logger) *SubtitleMerge {
	return &SubtitleMerge{logger: logging.NewComponentLogger(logger, pipeline.StepSubtitleMerge)}
}

func (s *SubtitleMerge) Name() string { return pipeline.StepSubtitleMerge }

// Execute reads SourceSRTPath and the translation artifact (the
// term-processed variant when the optional step produced one) and writes
// MergedSRTPath. Length mismatches between the tracks become warnings.
func (s *SubtitleMerge) Execute(ctx context.Context, state *pipeline.State) error {
	if state.SourceSRTPath == "" {
		return services.Wrap(services.ErrNotFound, s.Name(), "", "no source subtitles available", nil)
	}
	translatedPath := state.TermProcessedSRTPath
	if translatedPath == "" {
		translatedPath = state.TranslatedSRTPath
	}
	if translatedPath == "" {
		return services.Wrap(services.ErrNotFound, s.Name(), "", "no translated subtitles available", nil)
	}

	primary, err := subtitles.ParseFile(state.SourceSRTPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, s.Name(), "parse", "source subtitles are malformed", err)
	}
	secondary, err := subtitles.ParseFile(translatedPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, s.Name(), "parse", "translated subtitles are malformed", err)
	}

	merged, warnings := subtitles.MergeBilingual(primary, secondary)
	for _, warning := range warnings {
		state.AddWarning(warning)
		if s.logger != nil {
			s.logger.Warn(warning)
		}
	}

	outputPath := filepath.Join(state.WorkingDirectory, "merged.srt")
	if err := subtitles.WriteFile(outputPath, merged); err != nil {
		return services.Wrap(services.ErrValidation, s.Name(), "write", "merged subtitles could not be written", err)
	}

	state.MergedSRTPath = outputPath
	return nil
}

// Metadata reports which translation artifact fed the merge.
func (s *SubtitleMerge) Metadata(state *pipeline.State) map[string]any {
	metadata := map[string]any{
		"term_processed": state.TermProcessedSRTPath != "",
	}
	if cues, err := subtitles.ParseFile(state.MergedSRTPath); err == nil {
		metadata["cues"] = len(cues)
	}
	return metadata
}
