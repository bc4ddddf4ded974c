package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"neuroscreen/internal/logging"
	"neuroscreen/internal/pipeline"
	"neuroscreen/internal/queue"
	"neuroscreen/internal/results"
	"neuroscreen/internal/services"
)

// processJob drives one claimed job end to end. The job context is
// detached from worker shutdown: a dispatched job always runs to
// completion or failure, bounded only by the wall-clock limit.
func (m *Manager) processJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	jobCtx := services.WithJobID(context.WithoutCancel(ctx), job.ID)
	jobCtx = services.WithJobUUID(jobCtx, job.UUID)
	jobCtx = services.WithModality(jobCtx, string(job.Modality))
	jobCtx, cancel := context.WithTimeout(jobCtx, m.jobTimeout)
	defer cancel()

	logger = logging.WithContext(jobCtx, logger)
	logger.Info("job started",
		logging.Int("attempt", job.Attempts),
		logging.String(logging.FieldEventType, "job_started"))

	stopHeartbeat := m.startHeartbeat(jobCtx, job.ID)
	err := m.executeJob(jobCtx, logger, job)
	stopHeartbeat()

	if err != nil {
		if jobCtx.Err() == context.DeadlineExceeded {
			err = services.Wrap(services.ErrTimeout, "workflow", "execute",
				"job exceeded wall-clock limit", err)
		}
		m.handleFailure(logger, job, err)
		return
	}

	job.SetCompleted()
	if updateErr := m.store.Update(context.WithoutCancel(ctx), job); updateErr != nil {
		logger.Error("failed to mark job completed", logging.Error(updateErr))
		return
	}
	logger.Info("job completed", logging.String(logging.FieldEventType, "job_completed"))
}

// executeJob runs fetch, pipeline, persist and notify. Media staging
// is cleaned up on every path.
func (m *Manager) executeJob(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	p, ok := m.pipelines[job.Modality]
	if !ok {
		return services.Wrap(services.ErrValidation, "workflow", "dispatch",
			"no pipeline for modality "+string(job.Modality), nil)
	}

	patient, err := pipeline.ParsePatientContext(job.PatientJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "workflow", "dispatch",
			"invalid patient context", err)
	}

	handle, err := m.media.Fetch(ctx, job.MediaRef)
	if err != nil {
		return err
	}
	defer func() {
		if cleanupErr := handle.Cleanup(); cleanupErr != nil {
			logger.Warn("failed to remove staged media", logging.Error(cleanupErr))
		}
	}()

	assessment, err := pipeline.Run(ctx, p, handle, patient)
	if err != nil {
		return err
	}
	assessment.JobUUID = job.UUID

	if err := m.results.Persist(ctx, assessment); err != nil {
		return services.Wrap(services.ErrTransient, "workflow", "persist",
			"store assessment", err)
	}

	m.maybeNotify(ctx, logger, job, assessment, patient)
	return nil
}

// maybeNotify alerts on flagged voice assessments, carrying the
// submitted patient context so the alert identifies the subject.
// Notification failures are logged, never propagated into the job
// outcome.
func (m *Manager) maybeNotify(ctx context.Context, logger *slog.Logger, job *queue.Job, assessment *results.Assessment, patient pipeline.PatientContext) {
	if job.Modality != queue.ModalityVoice {
		return
	}
	if !assessment.Severity.AtLeast(results.SeverityWarning) {
		return
	}
	if err := m.notifier.NotifyAssessmentFlagged(ctx, job.UUID, assessment, patient); err != nil {
		logger.Warn("assessment notification failed",
			logging.Error(err),
			logging.String(logging.FieldSeverity, string(assessment.Severity)))
	}
}

// handleFailure classifies the error and either schedules a retry with
// backoff or parks the job in terminal failed state.
func (m *Manager) handleFailure(logger *slog.Logger, job *queue.Job, jobErr error) {
	kind := services.Classify(jobErr)

	allowed := kind.MaxRetries()
	if ceiling := m.cfg.Workflow.MaxRetries; allowed > ceiling {
		allowed = ceiling
	}
	retriesUsed := job.Attempts - 1

	if retriesUsed < allowed {
		retryAt := time.Now().UTC().Add(m.retryBackoff)
		job.SetFailed(string(kind), jobErr.Error(), &retryAt)
		logger.Warn("job failed, retry scheduled",
			logging.Error(jobErr),
			logging.String(logging.FieldErrorKind, string(kind)),
			logging.Int("attempt", job.Attempts),
			logging.String(logging.FieldEventType, "job_retry_scheduled"))
	} else {
		job.SetFailed(string(kind), jobErr.Error(), nil)
		logger.Error("job failed terminally",
			logging.Error(jobErr),
			logging.String(logging.FieldErrorKind, string(kind)),
			logging.Int("attempt", job.Attempts),
			logging.String(logging.FieldEventType, "job_failed"))
	}

	updateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.store.Update(updateCtx, job); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
		return
	}

	if job.IsTerminal() {
		if err := m.notifier.NotifyJobFailed(updateCtx, job.UUID, string(job.Modality), job.ErrorKind); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}

// startHeartbeat keeps the job's heartbeat fresh while it executes.
func (m *Manager) startHeartbeat(ctx context.Context, jobID int64) func() {
	interval := time.Duration(m.cfg.Workflow.HeartbeatInterval) * time.Second
	if interval <= 0 {
		return func() {}
	}

	hbCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := m.store.UpdateHeartbeat(hbCtx, jobID); err != nil && !errors.Is(err, context.Canceled) {
					m.logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}
