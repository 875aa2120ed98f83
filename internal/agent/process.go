package agent

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"sublingo/internal/config"
	"sublingo/internal/fileutil"
	"sublingo/internal/logging"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
	"sublingo/internal/subtitles"
)

// ProcessOptions carries the per-call inputs to ProcessVideo.
type ProcessOptions struct {
	// InputPath is the video to process. Required.
	InputPath string
	// OutputPath is the final container location. Derived beside the
	// input when empty.
	OutputPath string
	// WorkingDir is the scratch directory. A temporary directory is
	// created (and removed afterwards) when empty; a caller-supplied
	// directory is created if missing and left in place.
	WorkingDir string
	// Overrides adjusts the agent's base configuration for this call only.
	Overrides config.Overrides
}

// ProcessVideo drives one full pipeline run. Structural problems (missing
// input, unusable working directory) return an error before any step
// executes; step failures are recorded in the returned state instead.
func (a *Agent) ProcessVideo(ctx context.Context, opts ProcessOptions) (*pipeline.State, error) {
	inputPath, err := config.ExpandPath(opts.InputPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "agent", "process", "resolve input path", err)
	}
	if err := fileutil.ValidateVideoFile(inputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "agent", "process", fmt.Sprintf("input video not found: %s", inputPath), nil)
		}
		return nil, services.Wrap(services.ErrValidation, "agent", "process", "input video rejected", err)
	}

	effective := a.cfg.WithOverrides(opts.Overrides)

	workDir, autoCreated, err := a.prepareWorkDir(opts.WorkingDir)
	if err != nil {
		return nil, err
	}
	if autoCreated {
		defer func() {
			if removeErr := os.RemoveAll(workDir); removeErr != nil && a.logger != nil {
				a.logger.Warn("remove temporary working directory", logging.Error(removeErr))
			}
		}()
	}

	// One run owns the working directory for its whole lifetime.
	lock := flock.New(filepath.Join(workDir, ".sublingo.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "agent", "process", "lock working directory", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "agent", "process", fmt.Sprintf("working directory already in use: %s", workDir), nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	outputPath := strings.TrimSpace(opts.OutputPath)
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath, effective.Pipeline.OutputFormat)
	}

	state := pipeline.NewState(uuid.NewString(), inputPath, workDir, outputPath, effective)

	if info, statErr := os.Stat(inputPath); statErr == nil {
		required := uint64(info.Size()) * 2
		if spaceErr := fileutil.CheckDiskSpace(workDir, required); spaceErr != nil {
			state.AddWarning(spaceErr.Error())
		}
	}

	if a.logger != nil {
		a.logger.Info("processing video",
			logging.String(logging.FieldRunID, state.RunID),
			logging.String("input", inputPath),
			logging.String("output", outputPath),
		)
	}

	ctx = services.WithRunID(ctx, state.RunID)
	state = a.graph.Invoke(ctx, state)
	state.CompletedAt = time.Now().UTC()

	a.persistRun(ctx, state)

	if a.logger != nil {
		if state.Succeeded() {
			a.logger.Info("run completed",
				logging.String(logging.FieldRunID, state.RunID),
				logging.String("output", state.FinalVideoPath),
			)
		} else {
			a.logger.Error("run failed",
				logging.String(logging.FieldRunID, state.RunID),
				logging.Int("errors", len(state.Errors)),
			)
		}
	}
	return state, nil
}

// ProcessBatch runs the pipeline over each input in order. A structural
// error for one input becomes a synthetic failed state rather than
// aborting the batch, so the result always has one state per input.
func (a *Agent) ProcessBatch(ctx context.Context, inputPaths []string, outputDir string, overrides config.Overrides) ([]*pipeline.State, error) {
	outputDir, err := config.ExpandPath(outputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "agent", "batch", "resolve output directory", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "agent", "batch", "create output directory", err)
	}

	results := make([]*pipeline.State, 0, len(inputPaths))
	for _, inputPath := range inputPaths {
		outputPath := filepath.Join(outputDir, batchOutputName(inputPath, a.cfg.WithOverrides(overrides).Pipeline.OutputFormat))
		state, err := a.ProcessVideo(ctx, ProcessOptions{
			InputPath:  inputPath,
			OutputPath: outputPath,
			Overrides:  overrides,
		})
		if err != nil {
			state = failedState(inputPath, outputPath, err)
			if a.logger != nil {
				a.logger.Error("batch input failed before pipeline start",
					logging.String("input", inputPath),
					logging.Error(err),
				)
			}
		}
		results = append(results, state)
	}
	return results, nil
}

// GenerateSubtitles runs the pipeline up to the bilingual merge and copies
// the merged SRT to outputPath (derived beside the input when empty),
// without muxing a video.
func (a *Agent) GenerateSubtitles(ctx context.Context, inputPath, outputPath string, overrides config.Overrides) (*pipeline.State, string, error) {
	resolvedInput, err := config.ExpandPath(inputPath)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, "agent", "subtitles", "resolve input path", err)
	}
	if err := fileutil.ValidateVideoFile(resolvedInput); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", services.Wrap(services.ErrNotFound, "agent", "subtitles", fmt.Sprintf("input video not found: %s", resolvedInput), nil)
		}
		return nil, "", services.Wrap(services.ErrValidation, "agent", "subtitles", "input video rejected", err)
	}

	workDir, _, err := a.prepareWorkDir("")
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	effective := a.cfg.WithOverrides(overrides)
	state := pipeline.NewState(uuid.NewString(), resolvedInput, workDir, filepath.Join(workDir, "subtitled."+outputFormatOrDefault(effective.Pipeline.OutputFormat)), effective)

	ctx = services.WithRunID(ctx, state.RunID)
	state = a.graph.InvokeUntil(ctx, state, pipeline.StepSubtitleMerge)
	state.CompletedAt = time.Now().UTC()
	a.persistRun(ctx, state)

	if state.MergedSRTPath == "" {
		return state, "", nil
	}

	destination := strings.TrimSpace(outputPath)
	if destination == "" {
		ext := filepath.Ext(resolvedInput)
		destination = strings.TrimSuffix(resolvedInput, ext) + "_bilingual.srt"
	}
	cues, err := subtitles.ParseFile(state.MergedSRTPath)
	if err != nil {
		return state, "", services.Wrap(services.ErrValidation, "agent", "subtitles", "merged subtitles unreadable", err)
	}
	if err := subtitles.WriteFile(destination, cues); err != nil {
		return state, "", services.Wrap(services.ErrConfiguration, "agent", "subtitles", "write subtitle output", err)
	}
	return state, destination, nil
}

func (a *Agent) prepareWorkDir(requested string) (string, bool, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		workDir, err := os.MkdirTemp("", "sublingo-")
		if err != nil {
			return "", false, services.Wrap(services.ErrConfiguration, "agent", "process", "create temporary working directory", err)
		}
		return workDir, true, nil
	}
	expanded, err := config.ExpandPath(requested)
	if err != nil {
		return "", false, services.Wrap(services.ErrValidation, "agent", "process", "resolve working directory", err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return "", false, services.Wrap(services.ErrConfiguration, "agent", "process", "create working directory", err)
	}
	return expanded, false, nil
}

func defaultOutputPath(inputPath, format string) string {
	ext := filepath.Ext(inputPath)
	stem := strings.TrimSuffix(inputPath, ext)
	return stem + "_subtitled." + outputFormatOrDefault(format)
}

func batchOutputName(inputPath, format string) string {
	return fileutil.SafeBaseName(inputPath) + "_subtitled." + outputFormatOrDefault(format)
}

func outputFormatOrDefault(format string) string {
	format = strings.TrimSpace(strings.TrimPrefix(format, "."))
	if format == "" {
		return "mp4"
	}
	return format
}

func failedState(inputPath, outputPath string, err error) *pipeline.State {
	now := time.Now().UTC()
	state := &pipeline.State{
		RunID:          uuid.NewString(),
		InputVideoPath: inputPath,
		OutputPath:     outputPath,
		Errors:         []string{services.Message(err)},
		Warnings:       []string{},
		ShouldContinue: false,
		StartedAt:      now,
		CompletedAt:    now,
	}
	return state
}
