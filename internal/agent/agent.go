package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"sublingo/internal/config"
	"sublingo/internal/device"
	"sublingo/internal/history"
	"sublingo/internal/inference"
	"sublingo/internal/logging"
	"sublingo/internal/media/ffmpeg"
	"sublingo/internal/media/ffprobe"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
	"sublingo/internal/steps"
	"sublingo/internal/tts"
)

// Agent owns the compiled workflow graph and the collaborators behind it.
// Construct once, then drive runs through ProcessVideo, ProcessBatch, or
// GenerateSubtitles.
type Agent struct {
	cfg     config.Config
	logger  *slog.Logger
	runner  *pipeline.Runner
	graph   *pipeline.Graph
	cache   *tts.Cache
	store   *history.Store
	computeDevice string
}

// New validates the configuration, resolves the compute device, and builds
// the workflow graph once.
func New(cfg *config.Config, logger *slog.Logger) (*Agent, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "agent", "", "configuration is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "agent", "", "invalid configuration", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "agent", "", "prepare directories", err)
	}

	log := logging.NewComponentLogger(logger, "agent")

	effective := *cfg
	resolved := device.NewDetector(logger).Resolve(context.Background(), effective.Models.Device)
	if resolved != effective.Models.Device {
		log.Info("resolved compute device", logging.String("device", resolved))
	}
	effective.Models.Device = resolved

	a := &Agent{
		cfg:     effective,
		logger:  log,
		computeDevice: resolved,
	}

	if effective.Cache.Enabled {
		cache, err := tts.OpenCache(tts.CacheOptions{
			Dir:    filepath.Join(effective.Paths.CacheDir, "tts"),
			Logger: logger,
		})
		if err != nil {
			log.Warn("speech cache unavailable, continuing without it", logging.Error(err))
		} else {
			a.cache = cache
		}
	}

	store, err := history.Open(effective.HistoryDBPath())
	if err != nil {
		log.Warn("run history unavailable, continuing without it", logging.Error(err))
	} else {
		a.store = store
	}

	extractor := ffmpeg.New(effective.FFmpegBinary(), logger)
	probeBinary := effective.FFprobeBinary()
	probe := func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, probeBinary, path)
	}
	infer := inference.NewService(effective.InferenceBinary(), logger)
	synthesizer := tts.NewSynthesizer(effective.TTSBinary(), logger)

	a.runner = pipeline.NewRunner(effective.Retry.MaxRetries, effective.RetryDelay(), logger)
	graph, err := pipeline.NewGraph(a.runner,
		steps.NewAudioExtraction(extractor, probe, logger),
		steps.NewSpeechToText(infer, logger),
		steps.NewTranslation(infer, logger),
		steps.NewTermProcessing(logger),
		steps.NewSubtitleMerge(logger),
		steps.NewTextToSpeech(synthesizer, a.cache, logger),
		steps.NewVideoMuxing(extractor, logger),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build workflow graph: %w", err)
	}
	a.graph = graph
	return a, nil
}

// Close releases the cache and history store.
func (a *Agent) Close() {
	if a == nil {
		return
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil && a.logger != nil {
			a.logger.Warn("close speech cache", logging.Error(err))
		}
		a.cache = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Warn("close history store", logging.Error(err))
		}
		a.store = nil
	}
}

// Config returns the agent's base configuration with the device resolved.
func (a *Agent) Config() config.Config {
	return a.cfg
}

// Device returns the resolved compute device.
func (a *Agent) Device() string {
	return a.computeDevice
}

// History returns the run history store, or nil when persistence is
// unavailable.
func (a *Agent) History() *history.Store {
	return a.store
}

// RenderWorkflow returns the textual diagram of the compiled graph.
func (a *Agent) RenderWorkflow() string {
	return a.graph.Render()
}

func (a *Agent) persistRun(ctx context.Context, state *pipeline.State) {
	if a.store == nil {
		return
	}
	if err := a.store.SaveRun(ctx, state); err != nil && a.logger != nil {
		a.logger.Warn("persist run history",
			logging.String(logging.FieldRunID, state.RunID),
			logging.Error(err),
		)
	}
}
