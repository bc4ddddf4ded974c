package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"neuroscreen/internal/config"
)

// Store persists assessments in the shared SQLite database.
type Store struct {
	db *sql.DB
}

const createAssessmentsTable = `
CREATE TABLE IF NOT EXISTS assessments (
    job_uuid        TEXT PRIMARY KEY,
    modality        TEXT NOT NULL,
    classification  TEXT NOT NULL,
    probabilities   TEXT NOT NULL,
    score           REAL NOT NULL DEFAULT 0,
    confidence      REAL NOT NULL DEFAULT 0,
    severity        TEXT NOT NULL,
    reasons         TEXT,
    model_versions  TEXT,
    created_at      TEXT NOT NULL
);
`

// Open connects to the assessment table in the shared database file.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createAssessmentsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize assessments schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Persist stores an assessment keyed by job uuid. Re-persisting the same
// job overwrites the previous row, which keeps workflow retries idempotent.
func (s *Store) Persist(ctx context.Context, assessment *Assessment) error {
	if assessment == nil {
		return errors.New("assessment is nil")
	}
	if strings.TrimSpace(assessment.JobUUID) == "" {
		return errors.New("assessment requires a job uuid")
	}
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = time.Now().UTC()
	}

	probsJSON, err := json.Marshal(assessment.Probabilities)
	if err != nil {
		return fmt.Errorf("marshal probabilities: %w", err)
	}
	reasonsJSON, err := json.Marshal(assessment.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO assessments (
            job_uuid, modality, classification, probabilities, score, confidence,
            severity, reasons, model_versions, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(job_uuid) DO UPDATE SET
            modality = excluded.modality,
            classification = excluded.classification,
            probabilities = excluded.probabilities,
            score = excluded.score,
            confidence = excluded.confidence,
            severity = excluded.severity,
            reasons = excluded.reasons,
            model_versions = excluded.model_versions,
            created_at = excluded.created_at`,
		assessment.JobUUID,
		assessment.Modality,
		assessment.Classification,
		string(probsJSON),
		assessment.Score,
		assessment.Confidence,
		assessment.Severity,
		string(reasonsJSON),
		assessment.ModelVersions,
		assessment.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("persist assessment: %w", err)
	}
	return nil
}

// GetByJobUUID fetches the assessment for a job, or nil when absent.
func (s *Store) GetByJobUUID(ctx context.Context, jobUUID string) (*Assessment, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT job_uuid, modality, classification, probabilities, score, confidence,
                severity, reasons, model_versions, created_at
         FROM assessments WHERE job_uuid = ?`,
		jobUUID,
	)
	assessment, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return assessment, nil
}

// Count returns the number of stored assessments, for diagnostics and tests.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM assessments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count assessments: %w", err)
	}
	return count, nil
}

func scanAssessment(scanner interface{ Scan(dest ...any) error }) (*Assessment, error) {
	var (
		a          Assessment
		probsRaw   string
		reasonsRaw sql.NullString
		versions   sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&a.JobUUID,
		&a.Modality,
		&a.Classification,
		&probsRaw,
		&a.Score,
		&a.Confidence,
		&a.Severity,
		&reasonsRaw,
		&versions,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(probsRaw), &a.Probabilities); err != nil {
		return nil, fmt.Errorf("decode probabilities: %w", err)
	}
	if reasonsRaw.Valid && reasonsRaw.String != "" {
		if err := json.Unmarshal([]byte(reasonsRaw.String), &a.Reasons); err != nil {
			return nil, fmt.Errorf("decode reasons: %w", err)
		}
	}
	a.ModelVersions = versions.String
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		a.CreatedAt = created
	}
	return &a, nil
}
