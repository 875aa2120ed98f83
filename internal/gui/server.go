package gui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"sublingo/internal/agent"
	"sublingo/internal/config"
	"sublingo/internal/deps"
	"sublingo/internal/history"
	"sublingo/internal/logging"
	"sublingo/internal/pipeline"
	"sublingo/internal/services"
)

// Backend is the slice of the agent the server needs.
type Backend interface {
	ProcessVideo(ctx context.Context, opts agent.ProcessOptions) (*pipeline.State, error)
	GenerateSubtitles(ctx context.Context, inputPath, outputPath string, overrides config.Overrides) (*pipeline.State, string, error)
	Config() config.Config
	Device() string
	History() *history.Store
	RenderWorkflow() string
}

// Server serves the JSON API over a local TCP listener.
type Server struct {
	bind    string
	logger  *slog.Logger
	backend Backend

	listener net.Listener
	server   *http.Server
}

// NewServer wires the handler tree against the given backend. bind uses the
// usual host:port form.
func NewServer(bind string, backend Backend, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, errors.New("gui: backend is required")
	}
	bind = strings.TrimSpace(bind)
	if bind == "" {
		bind = "127.0.0.1:8211"
	}

	srv := &Server{
		bind:    bind,
		logger:  logger,
		backend: backend,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/workflow", srv.handleWorkflow)
	mux.HandleFunc("/api/runs", srv.handleRuns)
	mux.HandleFunc("/api/runs/", srv.handleRunDetail)
	mux.HandleFunc("/api/process", srv.handleProcess)
	mux.HandleFunc("/api/subtitles", srv.handleSubtitles)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Handler exposes the route tree, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving and returns immediately. The server shuts down when
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("gui listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("gui server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("gui server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down outside of context cancellation.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cfg := s.backend.Config()
	statuses := deps.CheckBinaries(deps.ForConfig(&cfg))
	payload := StatusResponse{
		Device:         s.backend.Device(),
		TargetLanguage: cfg.Languages.Target,
		SourceLanguage: cfg.Languages.Source,
		TTSEnabled:     cfg.Pipeline.EnableTTS,
		Dependencies:   make([]DependencyStatus, len(statuses)),
	}
	for i, st := range statuses {
		payload.Dependencies[i] = DependencyStatus{
			Name:      st.Name,
			Command:   st.Command,
			Optional:  st.Optional,
			Available: st.Available,
			Detail:    st.Detail,
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, WorkflowResponse{Diagram: s.backend.RenderWorkflow()})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	store := s.backend.History()
	if store == nil {
		s.writeJSON(w, http.StatusOK, RunListResponse{Runs: []RunSummary{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := store.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := RunListResponse{Runs: make([]RunSummary, len(records))}
	for i, rec := range records {
		payload.Runs[i] = runSummary(rec)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	store := s.backend.History()
	if store == nil {
		s.writeError(w, http.StatusNotFound, "run history is unavailable")
		return
	}
	record, results, err := store.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, history.ErrRunNotFound) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := RunDetailResponse{
		Run:   runSummary(record),
		Steps: make([]StepSummary, len(results)),
	}
	for i, res := range results {
		payload.Steps[i] = StepSummary{
			StepName:     res.StepName,
			Status:       string(res.Status),
			OutputPath:   res.OutputPath,
			ErrorMessage: res.ErrorMessage,
			DurationMS:   res.Duration.Milliseconds(),
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.InputPath) == "" {
		s.writeError(w, http.StatusBadRequest, "input_path is required")
		return
	}

	state, err := s.backend.ProcessVideo(r.Context(), agent.ProcessOptions{
		InputPath:  req.InputPath,
		OutputPath: req.OutputPath,
		Overrides:  req.overrides(),
	})
	if err != nil {
		s.writeError(w, statusForError(err), services.Message(err))
		return
	}
	s.writeJSON(w, http.StatusOK, processResponse(state))
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.InputPath) == "" {
		s.writeError(w, http.StatusBadRequest, "input_path is required")
		return
	}

	state, destination, err := s.backend.GenerateSubtitles(r.Context(), req.InputPath, req.OutputPath, req.overrides())
	if err != nil {
		s.writeError(w, statusForError(err), services.Message(err))
		return
	}
	resp := processResponse(state)
	resp.OutputPath = destination
	s.writeJSON(w, http.StatusOK, resp)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "gui-server")
	}
	return logging.NewNop()
}
