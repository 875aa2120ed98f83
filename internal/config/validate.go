package config

import (
	"errors"
	"fmt"
	"strings"
)

var validDevices = map[string]struct{}{
	"auto": {},
	"cpu":  {},
	"cuda": {},
	"mps":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateModels() error {
	if _, ok := validDevices[c.Models.Device]; !ok {
		return fmt.Errorf("models.device must be one of auto, cpu, cuda, mps (got %q)", c.Models.Device)
	}
	if strings.TrimSpace(c.Models.STTModel) == "" {
		return errors.New("models.stt_model must be set")
	}
	if strings.TrimSpace(c.Models.TranslationModel) == "" {
		return errors.New("models.translation_model must be set")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return errors.New("audio.channels must be 1 (mono) or 2 (stereo)")
	}
	if c.Audio.Format != "wav" {
		return fmt.Errorf("audio.format must be wav (got %q)", c.Audio.Format)
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if strings.TrimSpace(c.Languages.Source) == "" {
		return errors.New("languages.source must be set")
	}
	if strings.TrimSpace(c.Languages.Target) == "" {
		return errors.New("languages.target must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.OutputFormat {
	case "mp4", "mkv", "mov":
	default:
		return fmt.Errorf("pipeline.output_format must be one of mp4, mkv, mov (got %q)", c.Pipeline.OutputFormat)
	}
	if c.Pipeline.SubtitleFormat != "srt" {
		return fmt.Errorf("pipeline.subtitle_format must be srt (got %q)", c.Pipeline.SubtitleFormat)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must be >= 0")
	}
	if c.Retry.RetryDelaySeconds < 0 {
		return errors.New("retry.retry_delay_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && strings.TrimSpace(c.Paths.CacheDir) == "" {
		return errors.New("paths.cache_dir must be set when cache.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	return nil
}
