package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sublingo/internal/config"
	"sublingo/internal/logging"
	"sublingo/internal/services"
)

type fakeStep struct {
	name     string
	calls    int
	execute  func(ctx context.Context, state *State) error
	metadata map[string]any
}

func (f *fakeStep) Name() string { return f.name }

func (f *fakeStep) Execute(ctx context.Context, state *State) error {
	f.calls++
	if f.execute != nil {
		return f.execute(ctx, state)
	}
	return nil
}

func (f *fakeStep) Metadata(*State) map[string]any { return f.metadata }

func newTestState(cfg config.Config) *State {
	// Zero the retry policy so the runner's construction-time bounds govern.
	cfg.Retry.MaxRetries = 0
	cfg.Retry.RetryDelaySeconds = 0
	return NewState("run-1", "/videos/input.mp4", "/tmp/work", "/videos/out.mp4", cfg)
}

func newTestRunner(maxAttempts int) *Runner {
	r := NewRunner(maxAttempts, time.Millisecond, logging.NewNop())
	r.WithSleep(func(time.Duration) {})
	return r
}

func allSteps(execute func(ctx context.Context, state *State) error) []Step {
	steps := make([]Step, 0, 7)
	for _, name := range StepNames() {
		steps = append(steps, &fakeStep{name: name, execute: execute})
	}
	return steps
}

func TestRunStepSkipsAfterFailure(t *testing.T) {
	state := newTestState(config.Default())
	state.ShouldContinue = false
	step := &fakeStep{name: StepTranslation}

	newTestRunner(3).RunStep(context.Background(), step, state)

	if step.calls != 0 {
		t.Fatalf("expected no execution for skipped step, got %d calls", step.calls)
	}
	result := state.Result(StepTranslation)
	if result == nil || result.Status != StatusSkipped {
		t.Fatalf("expected skipped result, got %+v", result)
	}
	if len(state.Errors) != 0 {
		t.Fatalf("skip must not add errors: %v", state.Errors)
	}
}

func TestRunStepNonRetryableFailsImmediately(t *testing.T) {
	state := newTestState(config.Default())
	step := &fakeStep{
		name: StepAudioExtraction,
		execute: func(context.Context, *State) error {
			return services.Wrap(services.ErrValidation, StepAudioExtraction, "", "video has no audio stream", nil)
		},
	}

	newTestRunner(3).RunStep(context.Background(), step, state)

	if step.calls != 1 {
		t.Fatalf("non-retryable error must not be retried, got %d calls", step.calls)
	}
	result := state.Result(StepAudioExtraction)
	if result == nil || result.Status != StatusFailed {
		t.Fatalf("expected failed result, got %+v", result)
	}
	if result.ErrorMessage == "" || strings.Contains(result.ErrorMessage, services.ErrValidation.Error()) {
		t.Fatalf("expected marker-stripped message, got %q", result.ErrorMessage)
	}
	if state.ShouldContinue {
		t.Fatal("failure must clear ShouldContinue")
	}
	if len(state.Errors) != 1 || !strings.HasPrefix(state.Errors[0], StepAudioExtraction+": ") {
		t.Fatalf("expected one formatted error entry, got %v", state.Errors)
	}
}

func TestRunStepRetriesTransientThenSucceeds(t *testing.T) {
	state := newTestState(config.Default())
	attempts := 0
	step := &fakeStep{
		name: StepSpeechToText,
		execute: func(context.Context, *State) error {
			attempts++
			if attempts < 3 {
				return services.Wrap(services.ErrTransient, StepSpeechToText, "", "model busy", nil)
			}
			return nil
		},
	}

	slept := 0
	runner := newTestRunner(3)
	runner.WithSleep(func(time.Duration) { slept++ })
	runner.RunStep(context.Background(), step, state)

	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if slept != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", slept)
	}
	result := state.Result(StepSpeechToText)
	if result == nil || result.Status != StatusCompleted {
		t.Fatalf("expected completed result, got %+v", result)
	}
	if !state.ShouldContinue || len(state.Errors) != 0 {
		t.Fatalf("successful retry must leave the run healthy: %+v", state)
	}
}

func TestRunStepRetryExhaustionFails(t *testing.T) {
	state := newTestState(config.Default())
	step := &fakeStep{
		name: StepTranslation,
		execute: func(context.Context, *State) error {
			return services.Wrap(services.ErrTimeout, StepTranslation, "", "inference timed out", nil)
		},
	}

	newTestRunner(2).RunStep(context.Background(), step, state)

	if step.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", step.calls)
	}
	result := state.Result(StepTranslation)
	if result == nil || result.Status != StatusFailed {
		t.Fatalf("expected failed result after exhaustion, got %+v", result)
	}
	if state.ShouldContinue {
		t.Fatal("exhaustion must clear ShouldContinue")
	}
}

func TestRunStepHonorsStateRetryPolicy(t *testing.T) {
	cfg := config.Default()
	state := newTestState(cfg)
	state.Config.Retry.MaxRetries = 2
	step := &fakeStep{
		name: StepTranslation,
		execute: func(context.Context, *State) error {
			return services.Wrap(services.ErrTransient, StepTranslation, "", "busy", nil)
		},
	}

	// Runner allows 5 attempts but the run's config caps it at 2.
	newTestRunner(5).RunStep(context.Background(), step, state)
	if step.calls != 2 {
		t.Fatalf("expected state retry policy to win, got %d calls", step.calls)
	}
}

func TestRunStepRecordsArtifactAndMetadata(t *testing.T) {
	state := newTestState(config.Default())
	step := &fakeStep{
		name: StepAudioExtraction,
		execute: func(_ context.Context, s *State) error {
			s.ExtractedAudioPath = "/tmp/work/audio.wav"
			return nil
		},
		metadata: map[string]any{"sample_rate": 16000},
	}

	newTestRunner(1).RunStep(context.Background(), step, state)

	result := state.Result(StepAudioExtraction)
	if result == nil || result.Status != StatusCompleted {
		t.Fatalf("expected completed result, got %+v", result)
	}
	if result.OutputPath != "/tmp/work/audio.wav" {
		t.Fatalf("expected artifact path on result, got %q", result.OutputPath)
	}
	if result.Metadata["sample_rate"] != 16000 {
		t.Fatalf("expected metadata on result, got %v", result.Metadata)
	}
}

func TestRouterAfterTranslation(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.EnableTermProcessing = true
	cfg.Pipeline.TermDictionaryPath = "x.csv"
	if got := NextAfterTranslation(newTestState(cfg)); got != StepTermProcessing {
		t.Fatalf("expected term_processing, got %q", got)
	}

	cfg.Pipeline.EnableTermProcessing = false
	if got := NextAfterTranslation(newTestState(cfg)); got != StepSubtitleMerge {
		t.Fatalf("expected subtitle_merge, got %q", got)
	}

	// Enabled without a dictionary still skips term processing.
	cfg.Pipeline.EnableTermProcessing = true
	cfg.Pipeline.TermDictionaryPath = "  "
	if got := NextAfterTranslation(newTestState(cfg)); got != StepSubtitleMerge {
		t.Fatalf("expected subtitle_merge without dictionary, got %q", got)
	}
}

func TestRouterAfterSubtitleMerge(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.EnableTTS = true
	if got := NextAfterSubtitleMerge(newTestState(cfg)); got != StepTextToSpeech {
		t.Fatalf("expected text_to_speech, got %q", got)
	}
	cfg.Pipeline.EnableTTS = false
	if got := NextAfterSubtitleMerge(newTestState(cfg)); got != StepVideoMuxing {
		t.Fatalf("expected video_muxing, got %q", got)
	}
}

func TestGraphInvokeHappyPathDefaultConfig(t *testing.T) {
	graph, err := NewGraph(newTestRunner(1), allSteps(nil)...)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	state := graph.Invoke(context.Background(), newTestState(config.Default()))
	if !state.Succeeded() {
		t.Fatalf("expected success, errors: %v", state.Errors)
	}

	// Default config disables both optional branches.
	for _, name := range []string{StepAudioExtraction, StepSpeechToText, StepTranslation, StepSubtitleMerge, StepVideoMuxing} {
		result := state.Result(name)
		if result == nil || result.Status != StatusCompleted {
			t.Fatalf("expected completed result for %s, got %+v", name, result)
		}
	}
	for _, name := range []string{StepTermProcessing, StepTextToSpeech} {
		if state.Result(name) != nil {
			t.Fatalf("expected no result for unrouted step %s", name)
		}
	}
}

func TestGraphInvokeAllBranchesEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.EnableTermProcessing = true
	cfg.Pipeline.TermDictionaryPath = "terms.csv"
	cfg.Pipeline.EnableTTS = true

	graph, err := NewGraph(newTestRunner(1), allSteps(nil)...)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	state := graph.Invoke(context.Background(), newTestState(cfg))
	if !state.Succeeded() {
		t.Fatalf("expected success, errors: %v", state.Errors)
	}
	if got := len(state.Results()); got != 7 {
		t.Fatalf("expected all 7 steps to run, got %d results", got)
	}
}

func TestGraphInvokeShortCircuitsAfterFailure(t *testing.T) {
	steps := []Step{
		&fakeStep{name: StepAudioExtraction},
		&fakeStep{name: StepSpeechToText, execute: func(context.Context, *State) error {
			return services.Wrap(services.ErrExternalTool, StepSpeechToText, "", "transcription crashed", nil)
		}},
		&fakeStep{name: StepTranslation},
		&fakeStep{name: StepTermProcessing},
		&fakeStep{name: StepSubtitleMerge},
		&fakeStep{name: StepTextToSpeech},
		&fakeStep{name: StepVideoMuxing},
	}
	graph, err := NewGraph(newTestRunner(1), steps...)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	state := graph.Invoke(context.Background(), newTestState(config.Default()))
	if state.Succeeded() {
		t.Fatal("expected failed run")
	}
	if len(state.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", state.Errors)
	}
	if state.Result(StepSpeechToText).Status != StatusFailed {
		t.Fatalf("expected speech_to_text to fail, got %+v", state.Result(StepSpeechToText))
	}
	for _, name := range []string{StepTranslation, StepSubtitleMerge, StepVideoMuxing} {
		result := state.Result(name)
		if result == nil || result.Status != StatusSkipped {
			t.Fatalf("expected %s to be skipped, got %+v", name, result)
		}
	}
	for _, step := range steps[2:] {
		if fs := step.(*fakeStep); fs.calls != 0 {
			t.Fatalf("step %s executed after failure", fs.name)
		}
	}
}

func TestGraphInvokeUntilStopsEarly(t *testing.T) {
	graph, err := NewGraph(newTestRunner(1), allSteps(nil)...)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	state := graph.InvokeUntil(context.Background(), newTestState(config.Default()), StepSubtitleMerge)
	if result := state.Result(StepSubtitleMerge); result == nil || result.Status != StatusCompleted {
		t.Fatalf("expected subtitle_merge to run, got %+v", result)
	}
	if state.Result(StepVideoMuxing) != nil {
		t.Fatal("expected traversal to stop before video_muxing")
	}
}

func TestNewGraphValidation(t *testing.T) {
	if _, err := NewGraph(nil, allSteps(nil)...); err == nil {
		t.Fatal("expected error for nil runner")
	}
	incomplete := allSteps(nil)[:6]
	if _, err := NewGraph(newTestRunner(1), incomplete...); err == nil {
		t.Fatal("expected error for missing step")
	}
	dup := append(allSteps(nil), &fakeStep{name: StepTranslation})
	if _, err := NewGraph(newTestRunner(1), dup...); err == nil {
		t.Fatal("expected error for duplicate step")
	}
}

func TestRenderContainsEveryStepName(t *testing.T) {
	graph, err := NewGraph(newTestRunner(1), allSteps(nil)...)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	diagram := graph.Render()
	for _, name := range StepNames() {
		if !strings.Contains(diagram, name) {
			t.Fatalf("diagram missing step %s:\n%s", name, diagram)
		}
	}
}

func TestStateSucceeded(t *testing.T) {
	state := newTestState(config.Default())
	if !state.Succeeded() {
		t.Fatal("fresh state should report success")
	}
	state.AddWarning("cue counts differ")
	if !state.Succeeded() {
		t.Fatal("warnings must not fail the run")
	}
	state.AddError("boom")
	if state.Succeeded() {
		t.Fatal("errors must fail the run")
	}
}

func TestUnexpectedErrorTreatedAsNonRetryable(t *testing.T) {
	state := newTestState(config.Default())
	step := &fakeStep{
		name:    StepVideoMuxing,
		execute: func(context.Context, *State) error { return errors.New("disk exploded") },
	}
	newTestRunner(3).RunStep(context.Background(), step, state)
	if step.calls != 1 {
		t.Fatalf("unclassified errors must not retry, got %d calls", step.calls)
	}
	if state.Result(StepVideoMuxing).ErrorMessage != "disk exploded" {
		t.Fatalf("expected verbatim message, got %q", state.Result(StepVideoMuxing).ErrorMessage)
	}
}
