package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sublingo/internal/pipeline"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users then need to delete the history database.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// ErrRunNotFound indicates no run exists for the requested identifier.
var ErrRunNotFound = errors.New("run not found")

// Store persists run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("history: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("history: ensure directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("history: check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("history: read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("history: create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("history: record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit schema: %w", err)
	}
	return nil
}

// RunRecord is one persisted run summary.
type RunRecord struct {
	RunID       string
	InputPath   string
	OutputPath  string
	Succeeded   bool
	Errors      []string
	Warnings    []string
	StartedAt   time.Time
	CompletedAt time.Time
}

// SaveRun persists the final state of a run, including its step results.
func (s *Store) SaveRun(ctx context.Context, state *pipeline.State) error {
	if state == nil || strings.TrimSpace(state.RunID) == "" {
		return errors.New("history: state with a run id is required")
	}

	errorsJSON, err := json.Marshal(state.Errors)
	if err != nil {
		return fmt.Errorf("history: encode errors: %w", err)
	}
	warningsJSON, err := json.Marshal(state.Warnings)
	if err != nil {
		return fmt.Errorf("history: encode warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (run_id, input_path, output_path, succeeded, errors, warnings, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		state.RunID,
		state.InputVideoPath,
		state.OutputPath,
		boolToInt(state.Succeeded()),
		string(errorsJSON),
		string(warningsJSON),
		formatTime(state.StartedAt),
		formatTime(state.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM step_results WHERE run_id = ?", state.RunID); err != nil {
		return fmt.Errorf("history: clear step results: %w", err)
	}
	for _, result := range state.Results() {
		metadataJSON := "{}"
		if len(result.Metadata) > 0 {
			encoded, err := json.Marshal(result.Metadata)
			if err != nil {
				return fmt.Errorf("history: encode step metadata: %w", err)
			}
			metadataJSON = string(encoded)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO step_results (run_id, step_name, status, output_path, error_message, metadata, duration_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			state.RunID,
			result.StepName,
			string(result.Status),
			result.OutputPath,
			result.ErrorMessage,
			metadataJSON,
			result.Duration.Milliseconds(),
			formatTime(result.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("history: insert step result %s: %w", result.StepName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first, bounded by limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, input_path, output_path, succeeded, errors, warnings, started_at, completed_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return records, nil
}

// GetRun returns one run and its recorded step results.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, []pipeline.StepResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, input_path, output_path, succeeded, errors, warnings, started_at, completed_at
		FROM runs WHERE run_id = ?`, runID)
	record, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunRecord{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT step_name, status, output_path, error_message, metadata, duration_ms, created_at
		FROM step_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return RunRecord{}, nil, fmt.Errorf("history: list step results: %w", err)
	}
	defer rows.Close()

	var results []pipeline.StepResult
	for rows.Next() {
		var (
			result       pipeline.StepResult
			status       string
			metadataJSON string
			durationMS   int64
			createdAt    string
		)
		if err := rows.Scan(&result.StepName, &status, &result.OutputPath, &result.ErrorMessage, &metadataJSON, &durationMS, &createdAt); err != nil {
			return RunRecord{}, nil, fmt.Errorf("history: scan step result: %w", err)
		}
		result.Status = pipeline.Status(status)
		result.Duration = time.Duration(durationMS) * time.Millisecond
		result.CreatedAt = parseTime(createdAt)
		if metadataJSON != "" && metadataJSON != "{}" {
			_ = json.Unmarshal([]byte(metadataJSON), &result.Metadata)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return RunRecord{}, nil, fmt.Errorf("history: iterate step results: %w", err)
	}
	return record, results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		record       RunRecord
		succeeded    int
		errorsJSON   string
		warningsJSON string
		startedAt    string
		completedAt  string
	)
	err := row.Scan(&record.RunID, &record.InputPath, &record.OutputPath, &succeeded, &errorsJSON, &warningsJSON, &startedAt, &completedAt)
	if err != nil {
		return RunRecord{}, err
	}
	record.Succeeded = succeeded != 0
	record.StartedAt = parseTime(startedAt)
	record.CompletedAt = parseTime(completedAt)
	if err := json.Unmarshal([]byte(errorsJSON), &record.Errors); err != nil {
		return RunRecord{}, fmt.Errorf("history: decode errors: %w", err)
	}
	if err := json.Unmarshal([]byte(warningsJSON), &record.Warnings); err != nil {
		return RunRecord{}, fmt.Errorf("history: decode warnings: %w", err)
	}
	return record, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
