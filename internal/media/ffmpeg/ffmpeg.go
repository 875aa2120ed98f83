package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	langpkg "sublingo/internal/language"
	"sublingo/internal/logging"
	"sublingo/internal/services"
)

// commandRunner executes an external command and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

// FFmpeg wraps the ffmpeg binary.
type FFmpeg struct {
	binary string
	logger *slog.Logger
	run    commandRunner
}

// New constructs an FFmpeg wrapper around the given binary path.
func New(binary string, logger *slog.Logger) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (f *FFmpeg) WithCommandRunner(r commandRunner) {
	if f != nil && r != nil {
		f.run = r
	}
}

// ExtractAudioRequest describes an audio extraction job.
type ExtractAudioRequest struct {
	VideoPath  string
	OutputPath string
	SampleRate int
	Channels   int
}

// ExtractAudio pulls the audio track out of a video as uncompressed PCM WAV,
// resampled for speech recognition.
func (f *FFmpeg) ExtractAudio(ctx context.Context, req ExtractAudioRequest) error {
	if f == nil {
		return errors.New("ffmpeg not initialized")
	}
	if strings.TrimSpace(req.VideoPath) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "extract_audio", "video path is required", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "extract_audio", "output path is required", nil)
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return services.Wrap(services.ErrNotFound, "ffmpeg", "extract_audio", "video not found", err)
	}
	sampleRate := req.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := req.Channels
	if channels <= 0 {
		channels = 1
	}

	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", req.VideoPath,
		"-vn", "-sn",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-c:a", "pcm_s16le",
		req.OutputPath,
	}

	if f.logger != nil {
		f.logger.Debug("extracting audio",
			logging.String("video", req.VideoPath),
			logging.String("output", req.OutputPath),
			logging.Int("sample_rate", sampleRate),
			logging.Int("channels", channels),
		)
	}

	output, err := f.run(ctx, f.binary, args...)
	if err != nil {
		return classify("extract_audio", err, output)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "extract_audio", "ffmpeg produced no output file", err)
	}
	return nil
}

// MuxRequest describes a subtitle muxing job.
type MuxRequest struct {
	VideoPath      string
	SubtitlePath   string
	OutputPath     string
	SourceLanguage string
	TargetLanguage string
}

// MuxSubtitles embeds an SRT file into a copy of the video as a soft
// subtitle track. Video and audio streams are copied without re-encoding;
// the subtitle codec follows the output container (mov_text for MP4-family
// containers, srt otherwise).
func (f *FFmpeg) MuxSubtitles(ctx context.Context, req MuxRequest) error {
	if f == nil {
		return errors.New("ffmpeg not initialized")
	}
	if strings.TrimSpace(req.VideoPath) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "mux_subtitles", "video path is required", nil)
	}
	if strings.TrimSpace(req.SubtitlePath) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "mux_subtitles", "subtitle path is required", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "mux_subtitles", "output path is required", nil)
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return services.Wrap(services.ErrNotFound, "ffmpeg", "mux_subtitles", "video not found", err)
	}
	if _, err := os.Stat(req.SubtitlePath); err != nil {
		return services.Wrap(services.ErrNotFound, "ffmpeg", "mux_subtitles", "subtitle file not found", err)
	}

	args := buildMuxArgs(req)

	if f.logger != nil {
		f.logger.Debug("muxing subtitles",
			logging.String("video", req.VideoPath),
			logging.String("subtitle", req.SubtitlePath),
			logging.String("output", req.OutputPath),
		)
	}

	output, err := f.run(ctx, f.binary, args...)
	if err != nil {
		// A partial output file is worse than none.
		_ = os.Remove(req.OutputPath)
		return classify("mux_subtitles", err, output)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "mux_subtitles", "ffmpeg produced no output file", err)
	}
	return nil
}

func buildMuxArgs(req MuxRequest) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", req.VideoPath,
		"-i", req.SubtitlePath,
		"-map", "0:v", "-map", "0:a?", "-map", "1:0",
		"-c:v", "copy", "-c:a", "copy",
		"-c:s", SubtitleCodec(req.OutputPath),
	}

	lang3 := langpkg.ToISO3(req.TargetLanguage)
	title := langpkg.TrackTitle(req.SourceLanguage, req.TargetLanguage)
	args = append(args,
		"-metadata:s:s:0", "language="+lang3,
		"-metadata:s:s:0", "title="+title,
		"-disposition:s:0", "default",
	)

	return append(args, req.OutputPath)
}

// SubtitleCodec picks the soft-subtitle codec matching the output container.
func SubtitleCodec(outputPath string) string {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".mp4", ".m4v", ".mov":
		return "mov_text"
	default:
		return "srt"
	}
}

func classify(operation string, err error, output string) error {
	detail := strings.TrimSpace(output)
	if detail != "" {
		err = fmt.Errorf("%w: %s", err, tail(detail, 512))
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "ffmpeg", operation, "ffmpeg timed out", err)
	case errors.Is(err, exec.ErrNotFound):
		return services.Wrap(services.ErrNotFound, "ffmpeg", operation, "ffmpeg binary not found", err)
	default:
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, "ffmpeg failed", err)
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return string(output), err
}
