package steps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sublingo/internal/config"
	"sublingo/internal/inference"
	"sublingo/internal/logging"
	"sublingo/internal/media/ffmpeg"
	"sublingo/internal/media/ffprobe"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
	"sublingo/internal/subtitles"
	"sublingo/internal/tts"
)

const (
	sourceSRT = "1\n00:00:00,000 --> 00:00:02,000\nhello world\n\n2\n00:00:02,000 --> 00:00:04,000\ngoodbye\n"
	targetSRT = "1\n00:00:00,000 --> 00:00:02,000\n你好世界\n\n2\n00:00:02,000 --> 00:00:04,000\n再见\n"
)

type fakeExtractor struct {
	calls int
	err   error
}

func (f *fakeExtractor) ExtractAudio(ctx context.Context, req ffmpeg.ExtractAudioRequest) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(req.OutputPath, []byte("wav"), 0o644)
}

type fakeTranscriber struct {
	payload string
	err     error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req inference.TranscribeRequest) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(req.OutputSRTPath, []byte(f.payload), 0o644)
}

type fakeTranslator struct {
	payload string
	err     error
}

func (f *fakeTranslator) Translate(ctx context.Context, req inference.TranslateRequest) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(req.OutputSRTPath, []byte(f.payload), 0o644)
}

type fakeSynthesizer struct {
	err error
}

func (f *fakeSynthesizer) SynthesizeCues(ctx context.Context, cache *tts.Cache, req tts.CueSynthesisRequest) (tts.CueSynthesisResult, error) {
	if f.err != nil {
		return tts.CueSynthesisResult{}, f.err
	}
	if err := os.WriteFile(req.TimelinePath, []byte(`{"entries":[]}`), 0o644); err != nil {
		return tts.CueSynthesisResult{}, err
	}
	return tts.CueSynthesisResult{TimelinePath: req.TimelinePath, ClipCount: len(req.Cues)}, nil
}

type fakeMuxer struct {
	req ffmpeg.MuxRequest
	err error
}

func (f *fakeMuxer) MuxSubtitles(ctx context.Context, req ffmpeg.MuxRequest) error {
	f.req = req
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(req.OutputPath, []byte("mp4"), 0o644)
}

func probeWithAudio(ctx context.Context, path string) (ffprobe.Result, error) {
	return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}}}, nil
}

func newRunState(t *testing.T) *pipeline.State {
	t.Helper()
	workDir := t.TempDir()
	input := filepath.Join(workDir, "input.mp4")
	if err := os.WriteFile(input, []byte("video"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	cfg := config.Default()
	return pipeline.NewState("run-1", input, workDir, filepath.Join(workDir, "out.mp4"), cfg)
}

func TestAudioExtractionExecute(t *testing.T) {
	state := newRunState(t)
	extractor := &fakeExtractor{}
	step := NewAudioExtraction(extractor, probeWithAudio, logging.NewNop())

	if err := step.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if extractor.calls != 1 {
		t.Fatalf("expected one extraction call, got %d", extractor.calls)
	}
	if state.ExtractedAudioPath != filepath.Join(state.WorkingDirectory, "audio.wav") {
		t.Fatalf("unexpected artifact path: %q", state.ExtractedAudioPath)
	}
	if meta := step.Metadata(state); meta["sample_rate"] != 16000 {
		t.Fatalf("unexpected metadata: %v", meta)
	}
}

func TestAudioExtractionRejectsSilentVideo(t *testing.T) {
	state := newRunState(t)
	step := NewAudioExtraction(&fakeExtractor{}, func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}}, nil
	}, logging.NewNop())

	err := step.Execute(context.Background(), state)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if services.IsRetryable(err) {
		t.Fatal("missing audio stream must not be retryable")
	}
}

func TestSpeechToTextExecute(t *testing.T) {
	state := newRunState(t)
	state.ExtractedAudioPath = filepath.Join(state.WorkingDirectory, "audio.wav")
	step := NewSpeechToText(&fakeTranscriber{payload: sourceSRT}, logging.NewNop())

	if err := step.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.SourceSRTPath == "" {
		t.Fatal("expected SourceSRTPath to be set")
	}
	if meta := step.Metadata(state); meta["cues"] != 2 {
		t.Fatalf("expected 2 cues in metadata, got %v", meta)
	}
}

func TestSpeechToTextRequiresAudio(t *testing.T) {
	state := newRunState(t)
	step := NewSpeechToText(&fakeTranscriber{payload: sourceSRT}, logging.NewNop())
	if err := step.Execute(context.Background(), state); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTranslationExecute(t *testing.T) {
	state := newRunState(t)
	state.SourceSRTPath = filepath.Join(state.WorkingDirectory, "source.srt")
	step := NewTranslation(&fakeTranslator{payload: targetSRT}, logging.NewNop())

	if err := step.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.TranslatedSRTPath != filepath.Join(state.WorkingDirectory, "translated.srt") {
		t.Fatalf("unexpected artifact path: %q", state.TranslatedSRTPath)
	}
}

func TestTermProcessingExecute(t *testing.T) {
	state := newRunState(t)
	translated := filepath.Join(state.WorkingDirectory, "translated.srt")
	if err := os.WriteFile(translated, []byte("1\n00:00:00,000 --> 00:00:02,000\nthe model works\n"), 0o644); err != nil {
		t.Fatalf("write translated: %v", err)
	}
	dict := filepath.Join(state.WorkingDirectory, "terms.csv")
	if err := os.WriteFile(dict, []byte("model,模型\n"), 0o644); err != nil {
		t.Fatalf("write dictionary: %v", err)
	}
	state.TranslatedSRTPath = translated
	state.Config.Pipeline.EnableTermProcessing = true
	state.Config.Pipeline.TermDictionaryPath = dict

	step := NewTermProcessing(logging.NewNop())
	if err := step.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if state.TermProcessedSRTPath == "" {
		t.Fatal("expected TermProcessedSRTPath to be set")
	}
	cues, err := subtitles.ParseFile(state.TermProcessedSRTPath)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if cues[0].Text != "the 模型 works" {
		t.Fatalf("term not substituted: %q", cues[0].Text)
	}
	// The translation artifact stays untouched.
	original, err := subtitles.ParseFile(translated)
	if err != nil {
		t.Fatalf("parse original: %v", err)
	}
	if original[0].Text != "the model works" {
		t.Fatalf("translation artifact was modified: %q", original[0].Text)
	}
}

func TestTermProcessingMissingDictionary(t *testing.T) {
	state := newRunState(t)
	state.TranslatedSRTPath = filepath.Join(state.WorkingDirectory, "translated.srt")
	if err := os.WriteFile(state.TranslatedSRTPath, []byte(targetSRT), 0o644); err != nil {
		t.Fatalf("write translated: %v", err)
	}
	state.Config.Pipeline.TermDictionaryPath = filepath.Join(state.WorkingDirectory, "absent.csv")

	step := NewTermProcessing(logging.NewNop())
	if err := step.Execute(context.Background(), state); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSubtitleMergeExecute(t *testing.T) {
	state := newRunState(t)
	state.SourceSRTPath = filepath.Join(state.WorkingDirectory, "source.srt")
	state.TranslatedSRTPath = filepath.Join(state.WorkingDirectory, "translated.srt")
	if err := os.WriteFile(state.SourceSRTPath, []byte(sourceSRT), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := os.WriteFile(state.TranslatedSRTPath, []byte(targetSRT), 0o644); err != nil {
		t.Fatalf("write translated: %v", err)
	}

	step := NewSubtitleMerge(logging.NewNop())
	if err := step.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	cues, err := subtitles.ParseFile(state.MergedSRTPath)
	if err != nil {
		t.Fatalf("parse merged: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("expected 2 merged cues, got %d", len(cues))
	}
	if cues[0].Text != "hello world\n你好世界" {
		t.Fatalf("unexpected bilingual text: %q", cues[0].Text)
	}
	if len(state.Warnings) != 0 {
		t.Fatalf("equal-length merge must not warn: %v", state.Warnings)
	}
}

func TestSubtitleMergeLengthMismatchWarns(t *testing.T) {
	state := newRunState(t)
	state.SourceSRTPath = filepath.Join(state.WorkingDirectory, "source.srt")
	state.TranslatedSRTPath = filepath.Join(state.WorkingDirectory, "translated.srt")
	if err := os.WriteFile(state.SourceSRTPath, []byte(sourceSRT), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	short := "1\n00:00:00,000 --> 00:00:02,000\n你好世界\n"
	if err := os.WriteFile(state.TranslatedSRTPath, []byte(short), 0o644); err != nil {
		t.Fatalf("write translated: %v", err)
	}

	step := NewSubtitleMerge(logging.NewNop())
	if err := step.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(state.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", state.Warnings)
	}
	cues, err := subtitles.ParseFile(state.MergedSRTPath)
	if err != nil {
		t.Fatalf("parse merged: %v", err)
	}
	if len(cues) != 1 {
		t.Fatalf("expected pairing up to shorter length, got %d cues", len(cues))
	}
}

func TestSubtitleMergePrefersTermProcessedArtifact(t *testing.T) {
	state := newRunState(t)
	state.SourceSRTPath = filepath.Join(state.WorkingDirectory, "source.srt")
	state.TranslatedSRTPath = filepath.Join(state.WorkingDirectory, "translated.srt")
	state.TermProcessedSRTPath = filepath.Join(state.WorkingDirectory, "translated_terms.srt")
	if err := os.WriteFile(state.SourceSRTPath, []byte("1\n00:00:00,000 --> 00:00:02,000\nhello\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := os.WriteFile(state.TranslatedSRTPath, []byte("1\n00:00:00,000 --> 00:00:02,000\nraw\n"), 0o644); err != nil {
		t.Fatalf("write translated: %v", err)
	}
	if err := os.WriteFile(state.TermProcessedSRTPath, []byte("1\n00:00:00,000 --> 00:00:02,000\nprocessed\n"), 0o644); err != nil {
		t.Fatalf("write term-processed: %v", err)
	}

	step := NewSubtitleMerge(logging.NewNop())
	if err := step.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	cues, err := subtitles.ParseFile(state.MergedSRTPath)
	if err != nil {
		t.Fatalf("parse merged: %v", err)
	}
	if !strings.Contains(cues[0].Text, "processed") {
		t.Fatalf("merge should use the term-processed track, got %q", cues[0].Text)
	}
}

func TestTextToSpeechExecute(t *testing.T) {
	state := newRunState(t)
	state.TranslatedSRTPath = filepath.Join(state.WorkingDirectory, "translated.srt")
	if err := os.WriteFile(state.TranslatedSRTPath, []byte(targetSRT), 0o644); err != nil {
		t.Fatalf("write translated: %v", err)
	}

	step := NewTextToSpeech(&fakeSynthesizer{}, nil, logging.NewNop())
	if err := step.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.TTSTimelinePath != filepath.Join(state.WorkingDirectory, "tts_timeline.json") {
		t.Fatalf("unexpected timeline path: %q", state.TTSTimelinePath)
	}
}

func TestVideoMuxingExecute(t *testing.T) {
	state := newRunState(t)
	state.MergedSRTPath = filepath.Join(state.WorkingDirectory, "merged.srt")
	if err := os.WriteFile(state.MergedSRTPath, []byte(sourceSRT), 0o644); err != nil {
		t.Fatalf("write merged: %v", err)
	}

	muxer := &fakeMuxer{}
	step := NewVideoMuxing(muxer, logging.NewNop())
	if err := step.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.FinalVideoPath != state.OutputPath {
		t.Fatalf("expected FinalVideoPath %q, got %q", state.OutputPath, state.FinalVideoPath)
	}
	if muxer.req.SubtitlePath != state.MergedSRTPath {
		t.Fatalf("unexpected mux request: %+v", muxer.req)
	}
}

func TestFullGraphWithFakeCollaborators(t *testing.T) {
	state := newRunState(t)
	state.Config.Pipeline.EnableTTS = true

	steps := []pipeline.Step{
		NewAudioExtraction(&fakeExtractor{}, probeWithAudio, logging.NewNop()),
		NewSpeechToText(&fakeTranscriber{payload: sourceSRT}, logging.NewNop()),
		NewTranslation(&fakeTranslator{payload: targetSRT}, logging.NewNop()),
		NewTermProcessing(logging.NewNop()),
		NewSubtitleMerge(logging.NewNop()),
		NewTextToSpeech(&fakeSynthesizer{}, nil, logging.NewNop()),
		NewVideoMuxing(&fakeMuxer{}, logging.NewNop()),
	}
	runner := pipeline.NewRunner(3, time.Millisecond, logging.NewNop())
	runner.WithSleep(func(time.Duration) {})
	graph, err := pipeline.NewGraph(runner, steps...)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	final := graph.Invoke(context.Background(), state)
	if !final.Succeeded() {
		t.Fatalf("expected success, errors: %v", final.Errors)
	}
	// Default config leaves term processing off, TTS was enabled above.
	if final.Result(pipeline.StepTermProcessing) != nil {
		t.Fatal("term processing should not have run")
	}
	if result := final.Result(pipeline.StepTextToSpeech); result == nil || result.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed TTS result, got %+v", result)
	}
	if final.FinalVideoPath == "" {
		t.Fatal("expected final video artifact")
	}
}
