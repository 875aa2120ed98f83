package steps

import (
	"context"
	"log/slog"

	"sublingo/internal/logging"
	"sublingo/internal/media/ffmpeg"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
)

// SubtitleMuxer embeds a subtitle track into a video container with stream
// copy for the original audio and video.
type SubtitleMuxer interface {
	MuxSubtitles(ctx context.Context, req ffmpeg.MuxRequest) error
}

// VideoMuxing is the terminal step: it writes the bilingual track into the
// final output container.
type VideoMuxing struct {
	muxer  SubtitleMuxer
	logger *slog.Logger
}

// NewVideoMuxing constructs the muxing step.
func NewVideoMuxing(muxer SubtitleMuxer, logger *slog.Logger) *VideoMuxing {
	return &VideoMuxing{
		muxer:  muxer,
		logger: logging.NewComponentLogger(logger, pipeline.StepVideoMuxing),
	}
}

func (s *VideoMuxing) Name() string { return pipeline.StepVideoMuxing }

// Execute reads MergedSRTPath and InputVideoPath and writes FinalVideoPath.
func (s *VideoMuxing) Execute(ctx context.Context, state *pipeline.State) error {
	if state.MergedSRTPath == "" {
		return services.Wrap(services.ErrNotFound, s.Name(), "", "no merged subtitles available", nil)
	}

	err := s.muxer.MuxSubtitles(ctx, ffmpeg.MuxRequest{
		VideoPath:      state.InputVideoPath,
		SubtitlePath:   state.MergedSRTPath,
		OutputPath:     state.OutputPath,
		SourceLanguage: state.Config.Languages.Source,
		TargetLanguage: state.Config.Languages.Target,
	})
	if err != nil {
		return err
	}

	state.FinalVideoPath = state.OutputPath
	return nil
}

// Metadata reports the container and codec choices.
func (s *VideoMuxing) Metadata(state *pipeline.State) map[string]any {
	return map[string]any{
		"output_format":  state.Config.Pipeline.OutputFormat,
		"subtitle_codec": ffmpeg.SubtitleCodec(state.OutputPath),
	}
}
