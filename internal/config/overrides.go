package config

import "strings"

// Overrides carries per-call configuration adjustments. Nil fields leave the
// base value untouched. Merging produces the effective config stored in the
// processing state; the agent's base config is never mutated.
type Overrides struct {
	Device               *string
	SourceLanguage       *string
	TargetLanguage       *string
	EnableTTS            *bool
	EnableTermProcessing *bool
	TermDictionaryPath   *string
	OutputFormat         *string
	MaxRetries           *int
	RetryDelaySeconds    *float64
}

// WithOverrides returns a copy of c with the non-nil override fields applied.
func (c Config) WithOverrides(o Overrides) Config {
	if o.Device != nil {
		c.Models.Device = strings.ToLower(strings.TrimSpace(*o.Device))
	}
	if o.SourceLanguage != nil {
		c.Languages.Source = strings.ToLower(strings.TrimSpace(*o.SourceLanguage))
	}
	if o.TargetLanguage != nil {
		c.Languages.Target = strings.ToLower(strings.TrimSpace(*o.TargetLanguage))
	}
	if o.EnableTTS != nil {
		c.Pipeline.EnableTTS = *o.EnableTTS
	}
	if o.EnableTermProcessing != nil {
		c.Pipeline.EnableTermProcessing = *o.EnableTermProcessing
	}
	if o.TermDictionaryPath != nil {
		c.Pipeline.TermDictionaryPath = strings.TrimSpace(*o.TermDictionaryPath)
	}
	if o.OutputFormat != nil {
		c.Pipeline.OutputFormat = strings.ToLower(strings.TrimSpace(*o.OutputFormat))
	}
	if o.MaxRetries != nil && *o.MaxRetries >= 0 {
		c.Retry.MaxRetries = *o.MaxRetries
	}
	if o.RetryDelaySeconds != nil && *o.RetryDelaySeconds >= 0 {
		c.Retry.RetryDelaySeconds = *o.RetryDelaySeconds
	}
	return c
}
