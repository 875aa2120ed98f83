package config

const (
	defaultDataDir          = "~/.local/share/sublingo"
	defaultCacheDir         = "~/.cache/sublingo/tts"
	defaultLogDir           = "~/.local/share/sublingo/logs"
	defaultDevice           = "auto"
	defaultSTTModel         = "seamlessM4T_v2_large"
	defaultTranslationModel = "seamlessM4T_v2_large"
	defaultTTSModel         = "tts_models/multilingual/multi-dataset/xtts_v2"
	defaultSampleRate       = 16000
	defaultChannels         = 1
	defaultAudioFormat      = "wav"
	defaultSourceLanguage   = "eng"
	defaultTargetLanguage   = "cmn"
	defaultTTSLanguage      = "zh-cn"
	defaultTTSSpeaker       = "zh-CN-XiaoxiaoNeural"
	defaultOutputFormat     = "mp4"
	defaultSubtitleFormat   = "srt"
	defaultMaxRetries       = 3
	defaultRetryDelay       = 1.0
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Models: Models{
			Device:           defaultDevice,
			STTModel:         defaultSTTModel,
			TranslationModel: defaultTranslationModel,
			TTSModel:         defaultTTSModel,
		},
		Audio: Audio{
			SampleRate: defaultSampleRate,
			Channels:   defaultChannels,
			Format:     defaultAudioFormat,
		},
		Languages: Languages{
			Source:      defaultSourceLanguage,
			Target:      defaultTargetLanguage,
			TTSLanguage: defaultTTSLanguage,
			TTSSpeaker:  defaultTTSSpeaker,
		},
		Pipeline: Pipeline{
			EnableTTS:            false,
			EnableTermProcessing: true,
			OutputFormat:         defaultOutputFormat,
			SubtitleFormat:       defaultSubtitleFormat,
		},
		Retry: Retry{
			MaxRetries:        defaultMaxRetries,
			RetryDelaySeconds: defaultRetryDelay,
		},
		Cache: Cache{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
