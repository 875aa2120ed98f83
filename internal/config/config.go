package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Models contains inference model selection.
type Models struct {
	Device           string `toml:"device"`
	STTModel         string `toml:"stt_model"`
	TranslationModel string `toml:"translation_model"`
	TTSModel         string `toml:"tts_model"`
}

// Audio contains audio extraction settings.
type Audio struct {
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	Format     string `toml:"format"`
}

// Languages contains source/target language configuration.
type Languages struct {
	Source      string `toml:"source"`
	Target      string `toml:"target"`
	TTSLanguage string `toml:"tts_language"`
	TTSSpeaker  string `toml:"tts_speaker"`
}

// Pipeline contains feature toggles for optional steps.
type Pipeline struct {
	EnableTTS            bool   `toml:"enable_tts"`
	EnableTermProcessing bool   `toml:"enable_term_processing"`
	TermDictionaryPath   string `toml:"term_dictionary_path"`
	OutputFormat         string `toml:"output_format"`
	SubtitleFormat       string `toml:"subtitle_format"`
}

// Retry contains the step retry policy.
type Retry struct {
	MaxRetries        int     `toml:"max_retries"`
	RetryDelaySeconds float64 `toml:"retry_delay_seconds"`
}

// Cache contains configuration for the synthesized speech cache.
type Cache struct {
	Enabled bool `toml:"enabled"`
}

// Tools contains external binary names. Overridable mostly for tests and
// non-standard installs.
type Tools struct {
	FFmpeg    string `toml:"ffmpeg"`
	FFprobe   string `toml:"ffprobe"`
	Inference string `toml:"inference"`
	TTS       string `toml:"tts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sublingo.
//
// Configuration sections by subsystem:
//   - Paths: data, cache, and log directories
//   - Models: device selection and inference model identifiers
//   - Audio: extraction sample rate and channel layout
//   - Languages: source/target language codes, TTS voice
//   - Pipeline: optional step toggles and output formats
//   - Retry: step retry policy
//   - Cache: synthesized speech cache
//   - Tools: external binary names
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Models    Models    `toml:"models"`
	Audio     Audio     `toml:"audio"`
	Languages Languages `toml:"languages"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Retry     Retry     `toml:"retry"`
	Cache     Cache     `toml:"cache"`
	Tools     Tools     `toml:"tools"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sublingo/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sublingo.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the agent needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Paths.CacheDir) != "" {
		if err := os.MkdirAll(c.Paths.CacheDir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %q: %w", c.Paths.CacheDir, err)
		}
	}
	return nil
}

// RetryDelay returns the configured inter-attempt delay as a duration.
func (c *Config) RetryDelay() time.Duration {
	if c.Retry.RetryDelaySeconds <= 0 {
		return 0
	}
	return time.Duration(c.Retry.RetryDelaySeconds * float64(time.Second))
}

// HistoryDBPath returns the location of the run history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// FFmpegBinary returns the FFmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if b := strings.TrimSpace(c.Tools.FFmpeg); b != "" {
		return b
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media validation.
func (c *Config) FFprobeBinary() string {
	if b := strings.TrimSpace(c.Tools.FFprobe); b != "" {
		return b
	}
	return "ffprobe"
}

// InferenceBinary returns the speech model CLI used for transcription and translation.
func (c *Config) InferenceBinary() string {
	if b := strings.TrimSpace(c.Tools.Inference); b != "" {
		return b
	}
	return "seamless_communication"
}

// TTSBinary returns the speech synthesis executable name.
func (c *Config) TTSBinary() string {
	if b := strings.TrimSpace(c.Tools.TTS); b != "" {
		return b
	}
	return "tts"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Pipeline.TermDictionaryPath) != "" {
		if c.Pipeline.TermDictionaryPath, err = expandPath(c.Pipeline.TermDictionaryPath); err != nil {
			return err
		}
	} else {
		c.Pipeline.TermDictionaryPath = ""
	}

	c.Models.Device = strings.ToLower(strings.TrimSpace(c.Models.Device))
	c.Languages.Source = strings.ToLower(strings.TrimSpace(c.Languages.Source))
	c.Languages.Target = strings.ToLower(strings.TrimSpace(c.Languages.Target))
	c.Pipeline.OutputFormat = strings.ToLower(strings.TrimSpace(c.Pipeline.OutputFormat))
	c.Pipeline.SubtitleFormat = strings.ToLower(strings.TrimSpace(c.Pipeline.SubtitleFormat))
	return nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
