package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"sublingo/internal/logging"
	"sublingo/internal/services"
)

// commandRunner executes an external command and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

// Synthesizer wraps the external TTS CLI.
type Synthesizer struct {
	binary string
	logger *slog.Logger
	run    commandRunner
}

// NewSynthesizer constructs a synthesizer around the given binary path.
func NewSynthesizer(binary string, logger *slog.Logger) *Synthesizer {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "tts"
	}
	return &Synthesizer{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "tts"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (s *Synthesizer) WithCommandRunner(r commandRunner) {
	if s != nil && r != nil {
		s.run = r
	}
}

// SynthesizeRequest describes a single clip synthesis job.
type SynthesizeRequest struct {
	Text       string
	OutputPath string
	Model      string
	Language   string
	Speaker    string
	Device     string
}

// Synthesize renders one text snippet to a WAV clip at the output path.
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthesizeRequest) error {
	if s == nil {
		return errors.New("synthesizer not initialized")
	}
	if strings.TrimSpace(req.Text) == "" {
		return services.Wrap(services.ErrValidation, "tts", "synthesize", "text is required", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(services.ErrValidation, "tts", "synthesize", "output path is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "tts", "synthesize", "ensure output directory", err)
	}

	args := []string{
		"--text", req.Text,
		"--out_path", req.OutputPath,
	}
	if model := strings.TrimSpace(req.Model); model != "" {
		args = append(args, "--model_name", model)
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		args = append(args, "--language_idx", lang)
	}
	if speaker := strings.TrimSpace(req.Speaker); speaker != "" {
		args = append(args, "--speaker_idx", speaker)
	}
	if strings.EqualFold(strings.TrimSpace(req.Device), "cuda") {
		args = append(args, "--use_cuda", "true")
	}

	output, err := s.run(ctx, s.binary, args...)
	if err != nil {
		return classify(err, output)
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "tts", "synthesize", "synthesis produced no clip", err)
	}
	return nil
}

func classify(err error, output string) error {
	detail := strings.TrimSpace(output)
	if detail != "" {
		if len(detail) > 512 {
			detail = detail[len(detail)-512:]
		}
		err = fmt.Errorf("%w: %s", err, detail)
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "tts", "synthesize", "synthesis timed out", err)
	case errors.Is(err, exec.ErrNotFound):
		return services.Wrap(services.ErrNotFound, "tts", "synthesize", "tts binary not found", err)
	case strings.Contains(detail, "out of memory"):
		return services.Wrap(services.ErrTransient, "tts", "synthesize", "synthesis ran out of device memory", err)
	default:
		return services.Wrap(services.ErrExternalTool, "tts", "synthesize", "synthesis failed", err)
	}
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return string(output), err
}
