package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "sublingo/internal/language"
	"sublingo/internal/logging"
	"sublingo/internal/services"
)

// CLI task names understood by the seamless_communication entrypoint.
const (
	taskTranscribe = "stt"
	taskTranslate  = "t2tt"
)

// commandRunner executes an external command and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

// Service wraps the seamless_communication inference CLI.
type Service struct {
	binary string
	logger *slog.Logger
	run    commandRunner
}

// NewService constructs an inference service around the given binary path.
func NewService(binary string, logger *slog.Logger) *Service {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "seamless_communication"
	}
	return &Service{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "inference"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (s *Service) WithCommandRunner(r commandRunner) {
	if s != nil && r != nil {
		s.run = r
	}
}

// TranscribeRequest describes a speech-to-text job.
type TranscribeRequest struct {
	AudioPath      string
	OutputSRTPath  string
	Model          string
	Device         string
	SourceLanguage string
}

// Transcribe runs speech recognition over a WAV file and writes timed
// subtitles to the requested SRT path.
func (s *Service) Transcribe(ctx context.Context, req TranscribeRequest) error {
	if s == nil {
		return errors.New("inference service not initialized")
	}
	if strings.TrimSpace(req.AudioPath) == "" {
		return services.Wrap(services.ErrValidation, "inference", taskTranscribe, "audio path is required", nil)
	}
	if strings.TrimSpace(req.OutputSRTPath) == "" {
		return services.Wrap(services.ErrValidation, "inference", taskTranscribe, "output SRT path is required", nil)
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		return services.Wrap(services.ErrNotFound, "inference", taskTranscribe, "audio file not found", err)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputSRTPath), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "inference", taskTranscribe, "ensure output directory", err)
	}

	args := []string{
		taskTranscribe,
		"--input_audio", req.AudioPath,
		"--output_srt", req.OutputSRTPath,
	}
	args = appendModelArgs(args, req.Model, req.Device)
	if lang := langpkg.InferenceCode(req.SourceLanguage); lang != "und" {
		args = append(args, "--source_lang", lang)
	}

	if s.logger != nil {
		s.logger.Debug("running transcription",
			logging.String("audio", req.AudioPath),
			logging.String("model", req.Model),
			logging.String("device", req.Device),
		)
	}

	output, err := s.run(ctx, s.binary, args...)
	if err != nil {
		return classify(taskTranscribe, err, output)
	}
	if _, err := os.Stat(req.OutputSRTPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "inference", taskTranscribe, "transcription produced no SRT file", err)
	}
	return nil
}

// TranslateRequest describes a subtitle translation job.
type TranslateRequest struct {
	InputSRTPath   string
	OutputSRTPath  string
	Model          string
	Device         string
	SourceLanguage string
	TargetLanguage string
}

// Translate runs text-to-text translation over an SRT file, preserving the
// cue timing and writing the translated cues to the output path.
func (s *Service) Translate(ctx context.Context, req TranslateRequest) error {
	if s == nil {
		return errors.New("inference service not initialized")
	}
	if strings.TrimSpace(req.InputSRTPath) == "" {
		return services.Wrap(services.ErrValidation, "inference", taskTranslate, "input SRT path is required", nil)
	}
	if strings.TrimSpace(req.OutputSRTPath) == "" {
		return services.Wrap(services.ErrValidation, "inference", taskTranslate, "output SRT path is required", nil)
	}
	target := langpkg.InferenceCode(req.TargetLanguage)
	if target == "und" {
		return services.Wrap(services.ErrConfiguration, "inference", taskTranslate, fmt.Sprintf("unrecognized target language %q", req.TargetLanguage), nil)
	}
	if _, err := os.Stat(req.InputSRTPath); err != nil {
		return services.Wrap(services.ErrNotFound, "inference", taskTranslate, "input SRT not found", err)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputSRTPath), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "inference", taskTranslate, "ensure output directory", err)
	}

	args := []string{
		taskTranslate,
		"--input_srt", req.InputSRTPath,
		"--output_srt", req.OutputSRTPath,
		"--target_lang", target,
	}
	args = appendModelArgs(args, req.Model, req.Device)
	if lang := langpkg.InferenceCode(req.SourceLanguage); lang != "und" {
		args = append(args, "--source_lang", lang)
	}

	if s.logger != nil {
		s.logger.Debug("running translation",
			logging.String("input", req.InputSRTPath),
			logging.String("target_lang", target),
			logging.String("model", req.Model),
			logging.String("device", req.Device),
		)
	}

	output, err := s.run(ctx, s.binary, args...)
	if err != nil {
		return classify(taskTranslate, err, output)
	}
	if _, err := os.Stat(req.OutputSRTPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "inference", taskTranslate, "translation produced no SRT file", err)
	}
	return nil
}

func appendModelArgs(args []string, model, device string) []string {
	if model = strings.TrimSpace(model); model != "" {
		args = append(args, "--model_name", model)
	}
	if device = strings.TrimSpace(device); device != "" {
		args = append(args, "--device", device)
	}
	return args
}

func classify(operation string, err error, output string) error {
	detail := strings.TrimSpace(output)
	if detail != "" {
		err = fmt.Errorf("%w: %s", err, tail(detail, 512))
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "inference", operation, "inference timed out", err)
	case errors.Is(err, exec.ErrNotFound):
		return services.Wrap(services.ErrNotFound, "inference", operation, "inference binary not found", err)
	case strings.Contains(detail, "out of memory"):
		// GPU memory pressure clears between attempts more often than not.
		return services.Wrap(services.ErrTransient, "inference", operation, "inference ran out of device memory", err)
	default:
		return services.Wrap(services.ErrExternalTool, "inference", operation, "inference failed", err)
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
