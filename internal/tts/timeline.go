package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sublingo/internal/logging"
	"sublingo/internal/services"
	"sublingo/internal/subtitles"
)

// TimelineEntry maps one synthesized clip to its cue timing.
type TimelineEntry struct {
	Index   int    `json:"index"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Text    string `json:"text"`
	Clip    string `json:"clip"`
}

// Timeline is the dubbing manifest written next to the synthesized clips.
type Timeline struct {
	Language string          `json:"language"`
	Speaker  string          `json:"speaker"`
	Model    string          `json:"model"`
	Entries  []TimelineEntry `json:"entries"`
}

// CueSynthesisRequest describes a batch synthesis job over subtitle cues.
type CueSynthesisRequest struct {
	Cues         []subtitles.Cue
	ClipsDir     string
	TimelinePath string
	Model        string
	Language     string
	Speaker      string
	Device       string
}

// CueSynthesisResult reports what the batch produced.
type CueSynthesisResult struct {
	TimelinePath string
	ClipCount    int
	CacheHits    int
}

// SynthesizeCues renders a clip per cue, consulting the cache before paying
// for synthesis, and writes a timeline manifest describing when each clip
// plays. Cues with empty text are skipped. A nil cache disables caching.
func (s *Synthesizer) SynthesizeCues(ctx context.Context, cache *Cache, req CueSynthesisRequest) (CueSynthesisResult, error) {
	var result CueSynthesisResult
	if s == nil {
		return result, services.Wrap(services.ErrConfiguration, "tts", "synthesize_cues", "synthesizer not initialized", nil)
	}
	if strings.TrimSpace(req.ClipsDir) == "" {
		return result, services.Wrap(services.ErrValidation, "tts", "synthesize_cues", "clips directory is required", nil)
	}
	if strings.TrimSpace(req.TimelinePath) == "" {
		return result, services.Wrap(services.ErrValidation, "tts", "synthesize_cues", "timeline path is required", nil)
	}
	if err := os.MkdirAll(req.ClipsDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "tts", "synthesize_cues", "ensure clips directory", err)
	}

	timeline := Timeline{
		Language: req.Language,
		Speaker:  req.Speaker,
		Model:    req.Model,
		Entries:  make([]TimelineEntry, 0, len(req.Cues)),
	}

	for i, cue := range req.Cues {
		if err := ctx.Err(); err != nil {
			return result, services.Wrap(services.ErrTimeout, "tts", "synthesize_cues", "synthesis interrupted", err)
		}
		text := strings.TrimSpace(cue.Text)
		if text == "" {
			continue
		}

		clipPath := filepath.Join(req.ClipsDir, fmt.Sprintf("clip_%04d.wav", i+1))
		key := ClipKey(text, req.Language, req.Speaker, req.Model)

		clip, hit, err := cache.Get(key)
		if err != nil && s.logger != nil {
			s.logger.Warn("clip cache read failed", logging.Error(err))
		}
		if hit {
			if err := os.WriteFile(clipPath, clip, 0o644); err != nil {
				return result, services.Wrap(services.ErrConfiguration, "tts", "synthesize_cues", "write cached clip", err)
			}
			result.CacheHits++
		} else {
			err := s.Synthesize(ctx, SynthesizeRequest{
				Text:       text,
				OutputPath: clipPath,
				Model:      req.Model,
				Language:   req.Language,
				Speaker:    req.Speaker,
				Device:     req.Device,
			})
			if err != nil {
				return result, err
			}
			if data, readErr := os.ReadFile(clipPath); readErr == nil {
				if putErr := cache.Put(key, data); putErr != nil && s.logger != nil {
					s.logger.Warn("clip cache write failed", logging.Error(putErr))
				}
			}
		}

		timeline.Entries = append(timeline.Entries, TimelineEntry{
			Index:   i + 1,
			StartMS: cue.Start.Milliseconds(),
			EndMS:   cue.End.Milliseconds(),
			Text:    text,
			Clip:    filepath.Base(clipPath),
		})
		result.ClipCount++
	}

	payload, err := json.MarshalIndent(timeline, "", "  ")
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "tts", "synthesize_cues", "encode timeline", err)
	}
	if err := os.WriteFile(req.TimelinePath, payload, 0o644); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "tts", "synthesize_cues", "write timeline", err)
	}
	result.TimelinePath = req.TimelinePath

	if s.logger != nil {
		s.logger.Info("synthesized subtitle cues",
			logging.Int("clips", result.ClipCount),
			logging.Int("cache_hits", result.CacheHits),
			logging.String("timeline", req.TimelinePath),
		)
	}
	return result, nil
}
