package steps

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"sublingo/internal/logging"
	"sublingo/internal/media/ffmpeg"
	"sublingo/internal/media/ffprobe"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
)

// AudioExtractor pulls a normalized waveform out of a video container.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, req ffmpeg.ExtractAudioRequest) error
}

// ProbeFunc inspects a media container.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Result, error)

// AudioExtraction is the first pipeline step: it validates that the input
// carries an audio stream and extracts it as WAV into the working directory.
type AudioExtraction struct {
	extractor AudioExtractor
	probe     ProbeFunc
	logger    *slog.Logger
}

// NewAudioExtraction constructs the audio extraction step.
func NewAudioExtraction(extractor AudioExtractor, probe ProbeFunc, logger *slog.Logger) *AudioExtraction {
	return &AudioExtraction{
		extractor: extractor,
		probe:     probe,
		logger:    logging.NewComponentLogger(logger, pipeline.StepAudioExtraction),
	}
}

func (s *AudioExtraction) Name() string { return pipeline.StepAudioExtraction }

// Execute reads InputVideoPath and writes ExtractedAudioPath.
func (s *AudioExtraction) Execute(ctx context.Context, state *pipeline.State) error {
	if s.probe != nil {
		result, err := s.probe(ctx, state.InputVideoPath)
		if err != nil {
			return services.Wrap(services.ErrValidation, s.Name(), "probe", "input container could not be inspected", err)
		}
		if !result.HasAudio() {
			return services.Wrap(services.ErrValidation, s.Name(), "probe", fmt.Sprintf("no audio stream in %s", state.InputVideoPath), nil)
		}
	}

	outputPath := filepath.Join(state.WorkingDirectory, "audio.wav")
	err := s.extractor.ExtractAudio(ctx, ffmpeg.ExtractAudioRequest{
		VideoPath:  state.InputVideoPath,
		OutputPath: outputPath,
		SampleRate: state.Config.Audio.SampleRate,
		Channels:   state.Config.Audio.Channels,
	})
	if err != nil {
		return err
	}

	state.ExtractedAudioPath = outputPath
	return nil
}

// Metadata reports the extraction parameters on the completed result.
func (s *AudioExtraction) Metadata(state *pipeline.State) map[string]any {
	return map[string]any{
		"sample_rate": state.Config.Audio.SampleRate,
		"channels":    state.Config.Audio.Channels,
		"format":      state.Config.Audio.Format,
	}
}
