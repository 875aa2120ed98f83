package gui

import (
	"time"

	"sublingo/internal/config"
	"sublingo/internal/history"
	"sublingo/internal/pipeline"
)

// DependencyStatus mirrors deps.Status for the wire.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// StatusResponse reports the configured pipeline and its external tools.
type StatusResponse struct {
	Device         string             `json:"device"`
	SourceLanguage string             `json:"source_language"`
	TargetLanguage string             `json:"target_language"`
	TTSEnabled     bool               `json:"tts_enabled"`
	Dependencies   []DependencyStatus `json:"dependencies"`
}

// WorkflowResponse carries the rendered graph diagram.
type WorkflowResponse struct {
	Diagram string `json:"diagram"`
}

// RunSummary is one row of run history.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	InputPath   string    `json:"input_path"`
	OutputPath  string    `json:"output_path,omitempty"`
	Succeeded   bool      `json:"succeeded"`
	Errors      []string  `json:"errors"`
	Warnings    []string  `json:"warnings"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// RunListResponse wraps the run history listing.
type RunListResponse struct {
	Runs []RunSummary `json:"runs"`
}

// StepSummary is one persisted step result.
type StepSummary struct {
	StepName     string `json:"step_name"`
	Status       string `json:"status"`
	OutputPath   string `json:"output_path,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

// RunDetailResponse is a run with its step results.
type RunDetailResponse struct {
	Run   RunSummary    `json:"run"`
	Steps []StepSummary `json:"steps"`
}

// ProcessRequest asks for one video (or subtitle-only) run.
type ProcessRequest struct {
	InputPath      string `json:"input_path"`
	OutputPath     string `json:"output_path,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
	SourceLanguage string `json:"source_language,omitempty"`
	Device         string `json:"device,omitempty"`
	EnableTTS      *bool  `json:"enable_tts,omitempty"`
}

func (r ProcessRequest) overrides() config.Overrides {
	var o config.Overrides
	if r.TargetLanguage != "" {
		v := r.TargetLanguage
		o.TargetLanguage = &v
	}
	if r.SourceLanguage != "" {
		v := r.SourceLanguage
		o.SourceLanguage = &v
	}
	if r.Device != "" {
		v := r.Device
		o.Device = &v
	}
	if r.EnableTTS != nil {
		o.EnableTTS = r.EnableTTS
	}
	return o
}

// ProcessResponse summarizes a completed (or failed) run.
type ProcessResponse struct {
	RunID      string   `json:"run_id"`
	Succeeded  bool     `json:"succeeded"`
	OutputPath string   `json:"output_path,omitempty"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	Steps      []string `json:"steps"`
}

func processResponse(state *pipeline.State) ProcessResponse {
	resp := ProcessResponse{
		RunID:      state.RunID,
		Succeeded:  state.Succeeded(),
		OutputPath: state.FinalVideoPath,
		Errors:     state.Errors,
		Warnings:   state.Warnings,
	}
	for _, res := range state.Results() {
		resp.Steps = append(resp.Steps, res.StepName+":"+string(res.Status))
	}
	return resp
}

func runSummary(rec history.RunRecord) RunSummary {
	return RunSummary{
		RunID:       rec.RunID,
		InputPath:   rec.InputPath,
		OutputPath:  rec.OutputPath,
		Succeeded:   rec.Succeeded,
		Errors:      rec.Errors,
		Warnings:    rec.Warnings,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
	}
}
