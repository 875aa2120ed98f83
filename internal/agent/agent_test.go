package agent

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sublingo/internal/config"
	"sublingo/internal/logging"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
	"sublingo/internal/subtitles"
)

type scriptedStep struct {
	name    string
	calls   int
	execute func(ctx context.Context, state *pipeline.State) error
}

func (s *scriptedStep) Name() string { return s.name }

func (s *scriptedStep) Execute(ctx context.Context, state *pipeline.State) error {
	s.calls++
	if s.execute != nil {
		return s.execute(ctx, state)
	}
	return nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.CacheDir = filepath.Join(root, "cache")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Cache.Enabled = false
	cfg.Models.Device = "cpu"
	return cfg
}

// newTestAgent builds an agent and swaps in a graph of scripted steps so no
// external binary runs.
func newTestAgent(t *testing.T, overrideSteps map[string]*scriptedStep) *Agent {
	t.Helper()
	cfg := testConfig(t)
	a, err := New(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)

	steps := make([]pipeline.Step, 0, 7)
	for _, name := range pipeline.StepNames() {
		if step, ok := overrideSteps[name]; ok {
			steps = append(steps, step)
			continue
		}
		steps = append(steps, &scriptedStep{name: name})
	}
	runner := pipeline.NewRunner(1, 0, logging.NewNop())
	runner.WithSleep(func(time.Duration) {})
	graph, err := pipeline.NewGraph(runner, steps...)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	a.graph = graph
	return a
}

func writeInputVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, 4096), 0o644); err != nil {
		t.Fatalf("write input video: %v", err)
	}
	return path
}

func TestProcessVideoMissingInputRaisesStructuralError(t *testing.T) {
	a := newTestAgent(t, nil)
	state, err := a.ProcessVideo(context.Background(), ProcessOptions{
		InputPath: filepath.Join(t.TempDir(), "absent.mp4"),
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if state != nil {
		t.Fatal("structural errors must not produce a state")
	}
}

func TestProcessVideoRejectsTinyFile(t *testing.T) {
	a := newTestAgent(t, nil)
	dir := t.TempDir()
	stub := filepath.Join(dir, "stub.mp4")
	if err := os.WriteFile(stub, []byte("tiny"), 0o644); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if _, err := a.ProcessVideo(context.Background(), ProcessOptions{InputPath: stub}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestProcessVideoHappyPath(t *testing.T) {
	var seenWorkDir string
	mux := &scriptedStep{name: pipeline.StepVideoMuxing, execute: func(_ context.Context, state *pipeline.State) error {
		seenWorkDir = state.WorkingDirectory
		state.FinalVideoPath = state.OutputPath
		return os.WriteFile(state.OutputPath, []byte("mp4"), 0o644)
	}}
	a := newTestAgent(t, map[string]*scriptedStep{pipeline.StepVideoMuxing: mux})

	input := writeInputVideo(t, t.TempDir(), "movie.mp4")
	state, err := a.ProcessVideo(context.Background(), ProcessOptions{InputPath: input})
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	if !state.Succeeded() {
		t.Fatalf("expected success, errors: %v", state.Errors)
	}
	if want := strings.TrimSuffix(input, ".mp4") + "_subtitled.mp4"; state.OutputPath != want {
		t.Fatalf("default output path = %q, want %q", state.OutputPath, want)
	}
	if state.CompletedAt.IsZero() {
		t.Fatal("expected completion timestamp")
	}
	if state.RunID == "" {
		t.Fatal("expected a run id")
	}
	// The auto-created working directory is cleaned up after the run.
	if _, statErr := os.Stat(seenWorkDir); !os.IsNotExist(statErr) {
		t.Fatalf("expected temporary working directory to be removed, stat err: %v", statErr)
	}
}

func TestProcessVideoKeepsCallerWorkDir(t *testing.T) {
	a := newTestAgent(t, nil)
	input := writeInputVideo(t, t.TempDir(), "movie.mkv")
	workDir := filepath.Join(t.TempDir(), "scratch")

	state, err := a.ProcessVideo(context.Background(), ProcessOptions{
		InputPath:  input,
		WorkingDir: workDir,
	})
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	if state.WorkingDirectory != workDir {
		t.Fatalf("unexpected working directory: %q", state.WorkingDirectory)
	}
	if _, statErr := os.Stat(workDir); statErr != nil {
		t.Fatalf("caller-supplied working directory must survive the run: %v", statErr)
	}
}

func TestProcessVideoStepFailureReturnsStateNotError(t *testing.T) {
	failing := &scriptedStep{name: pipeline.StepSpeechToText, execute: func(context.Context, *pipeline.State) error {
		return services.Wrap(services.ErrExternalTool, pipeline.StepSpeechToText, "", "model crashed", nil)
	}}
	a := newTestAgent(t, map[string]*scriptedStep{pipeline.StepSpeechToText: failing})

	input := writeInputVideo(t, t.TempDir(), "movie.mp4")
	state, err := a.ProcessVideo(context.Background(), ProcessOptions{InputPath: input})
	if err != nil {
		t.Fatalf("step failures must not raise, got %v", err)
	}
	if state.Succeeded() {
		t.Fatal("expected failed state")
	}
	if len(state.Errors) != 1 {
		t.Fatalf("expected one error, got %v", state.Errors)
	}
}

func TestProcessVideoPersistsHistory(t *testing.T) {
	a := newTestAgent(t, nil)
	if a.History() == nil {
		t.Fatal("expected history store")
	}
	input := writeInputVideo(t, t.TempDir(), "movie.mp4")
	state, err := a.ProcessVideo(context.Background(), ProcessOptions{InputPath: input})
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}

	record, results, err := a.History().GetRun(context.Background(), state.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !record.Succeeded {
		t.Fatalf("expected persisted success, got %+v", record)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 persisted step results for default config, got %d", len(results))
	}
}

func TestProcessVideoAppliesOverrides(t *testing.T) {
	var seen config.Config
	probe := &scriptedStep{name: pipeline.StepAudioExtraction, execute: func(_ context.Context, state *pipeline.State) error {
		seen = state.Config
		return nil
	}}
	a := newTestAgent(t, map[string]*scriptedStep{pipeline.StepAudioExtraction: probe})

	input := writeInputVideo(t, t.TempDir(), "movie.mp4")
	target := "ja"
	enableTTS := true
	_, err := a.ProcessVideo(context.Background(), ProcessOptions{
		InputPath: input,
		Overrides: config.Overrides{TargetLanguage: &target, EnableTTS: &enableTTS},
	})
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	if seen.Languages.Target != "ja" || !seen.Pipeline.EnableTTS {
		t.Fatalf("overrides not applied: %+v", seen.Languages)
	}
	// The agent's base config stays untouched.
	if a.Config().Languages.Target != "cmn" {
		t.Fatalf("base config mutated: %q", a.Config().Languages.Target)
	}
}

func TestProcessBatchEmptyInputs(t *testing.T) {
	a := newTestAgent(t, nil)
	outputDir := filepath.Join(t.TempDir(), "out")

	results, err := a.ProcessBatch(context.Background(), nil, outputDir, config.Overrides{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result set, got %d", len(results))
	}
	if info, statErr := os.Stat(outputDir); statErr != nil || !info.IsDir() {
		t.Fatalf("expected output directory to be created: %v", statErr)
	}
}

func TestProcessBatchConvertsStructuralErrors(t *testing.T) {
	a := newTestAgent(t, nil)
	dir := t.TempDir()
	good := writeInputVideo(t, dir, "good.mp4")
	missing := filepath.Join(dir, "missing.mp4")
	outputDir := filepath.Join(dir, "out")

	results, err := a.ProcessBatch(context.Background(), []string{good, missing}, outputDir, config.Overrides{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected one result per input, got %d", len(results))
	}
	if !results[0].Succeeded() {
		t.Fatalf("expected first input to succeed: %v", results[0].Errors)
	}
	if results[1].Succeeded() || results[1].ShouldContinue {
		t.Fatal("expected synthetic failed state for missing input")
	}
	if len(results[1].Errors) != 1 {
		t.Fatalf("expected single error on synthetic state, got %v", results[1].Errors)
	}
	if results[1].InputVideoPath != missing {
		t.Fatalf("order not preserved: %q", results[1].InputVideoPath)
	}
}

func TestGenerateSubtitles(t *testing.T) {
	merge := &scriptedStep{name: pipeline.StepSubtitleMerge, execute: func(_ context.Context, state *pipeline.State) error {
		merged := filepath.Join(state.WorkingDirectory, "merged.srt")
		cues := []subtitles.Cue{{Index: 1, Start: 0, End: time.Second, Text: "hello\n你好"}}
		if err := subtitles.WriteFile(merged, cues); err != nil {
			return err
		}
		state.MergedSRTPath = merged
		return nil
	}}
	mux := &scriptedStep{name: pipeline.StepVideoMuxing}
	a := newTestAgent(t, map[string]*scriptedStep{
		pipeline.StepSubtitleMerge: merge,
		pipeline.StepVideoMuxing:   mux,
	})

	input := writeInputVideo(t, t.TempDir(), "movie.mp4")
	state, destination, err := a.GenerateSubtitles(context.Background(), input, "", config.Overrides{})
	if err != nil {
		t.Fatalf("GenerateSubtitles: %v", err)
	}
	if !state.Succeeded() {
		t.Fatalf("expected success, errors: %v", state.Errors)
	}
	if want := strings.TrimSuffix(input, ".mp4") + "_bilingual.srt"; destination != want {
		t.Fatalf("destination = %q, want %q", destination, want)
	}
	cues, err := subtitles.ParseFile(destination)
	if err != nil {
		t.Fatalf("parse destination: %v", err)
	}
	if len(cues) != 1 || cues[0].Text != "hello\n你好" {
		t.Fatalf("unexpected cues: %+v", cues)
	}
	if mux.calls != 0 {
		t.Fatal("muxing must not run for subtitle-only output")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models.Device = "quantum"
	if _, err := New(&cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
