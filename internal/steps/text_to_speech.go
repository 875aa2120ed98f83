package steps

import (
	"context"
	"log/slog"
	"path/filepath"

	"sublingo/internal/logging"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
	"sublingo/internal/subtitles"
	"sublingo/internal/tts"
)

// CueSynthesizer renders clips for subtitle cues and writes a dubbing
// timeline manifest.
type CueSynthesizer interface {
	SynthesizeCues(ctx context.Context, cache *tts.Cache, req tts.CueSynthesisRequest) (tts.CueSynthesisResult, error)
}

// TextToSpeech synthesizes speech for the translated cues. The clip cache
// is owned by the agent and shared across runs; a nil cache disables
// caching.
type TextToSpeech struct {
	synthesizer CueSynthesizer
	cache       *tts.Cache
	logger      *slog.Logger
}

// NewTextToSpeech constructs the synthesis step.
func NewTextToSpeech(synthesizer CueSynthesizer, cache *tts.Cache, logger *slog.Logger) *TextToSpeech {
	return &TextToSpeech{
		synthesizer: synthesizer,
		cache:       cache,
		logger:      logging.NewComponentLogger(logger, pipeline.StepTextToSpeech),
	}
}

func (s *TextToSpeech) Name() string { return pipeline.StepTextToSpeech }

// Execute reads the translation artifact (term-processed when available)
// and writes TTSTimelinePath.
func (s *TextToSpeech) Execute(ctx context.Context, state *pipeline.State) error {
	translatedPath := state.TermProcessedSRTPath
	if translatedPath == "" {
		translatedPath = state.TranslatedSRTPath
	}
	if translatedPath == "" {
		return services.Wrap(services.ErrNotFound, s.Name(), "", "no translated subtitles available", nil)
	}

	cues, err := subtitles.ParseFile(translatedPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, s.Name(), "parse", "translated subtitles are malformed", err)
	}

	timelinePath := filepath.Join(state.WorkingDirectory, "tts_timeline.json")
	result, err := s.synthesizer.SynthesizeCues(ctx, s.cache, tts.CueSynthesisRequest{
		Cues:         cues,
		ClipsDir:     filepath.Join(state.WorkingDirectory, "tts_clips"),
		TimelinePath: timelinePath,
		Model:        state.Config.Models.TTSModel,
		Language:     state.Config.Languages.TTSLanguage,
		Speaker:      state.Config.Languages.TTSSpeaker,
		Device:       state.Config.Models.Device,
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("synthesized dubbing clips",
			logging.Int("clips", result.ClipCount),
			logging.Int("cache_hits", result.CacheHits),
		)
	}

	state.TTSTimelinePath = timelinePath
	return nil
}

// Metadata reports the synthesis voice configuration.
func (s *TextToSpeech) Metadata(state *pipeline.State) map[string]any {
	return map[string]any{
		"model":    state.Config.Models.TTSModel,
		"language": state.Config.Languages.TTSLanguage,
		"speaker":  state.Config.Languages.TTSSpeaker,
	}
}
