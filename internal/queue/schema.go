package queue

import (
	"context"
	"fmt"
)

const createJobsTable = `
CREATE TABLE IF NOT EXISTS inference_jobs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid            TEXT NOT NULL UNIQUE,
    modality        TEXT NOT NULL,
    media_ref       TEXT NOT NULL,
    patient_json    TEXT,
    status          TEXT NOT NULL,
    attempts        INTEGER NOT NULL DEFAULT 0,
    error_kind      TEXT,
    error_message   TEXT,
    next_attempt_at TEXT,
    last_heartbeat  TEXT,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inference_jobs_status
    ON inference_jobs (status, created_at);

CREATE INDEX IF NOT EXISTS idx_inference_jobs_uuid
    ON inference_jobs (uuid);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createJobsTable); err != nil {
		return fmt.Errorf("initialize queue schema: %w", err)
	}
	return nil
}
