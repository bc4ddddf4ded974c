package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"neuroscreen/internal/config"
	"neuroscreen/internal/logging"
	"neuroscreen/internal/mediastore"
	"neuroscreen/internal/notifications"
	"neuroscreen/internal/pipeline"
	"neuroscreen/internal/queue"
	"neuroscreen/internal/results"
)

// Manager coordinates the worker pool over the job queue.
type Manager struct {
	cfg       *config.Config
	store     *queue.Store
	results   *results.Store
	media     mediastore.Store
	pipelines map[queue.Modality]pipeline.DiagnosticPipeline
	notifier  notifications.Service
	logger    *slog.Logger

	pollInterval time.Duration
	jobTimeout   time.Duration
	retryBackoff time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a manager. The pipelines map must cover every
// modality the queue accepts.
func NewManager(
	cfg *config.Config,
	store *queue.Store,
	resultStore *results.Store,
	media mediastore.Store,
	pipelines map[queue.Modality]pipeline.DiagnosticPipeline,
	notifier notifications.Service,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		results:      resultStore,
		media:        media,
		pipelines:    pipelines,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		jobTimeout:   time.Duration(cfg.Workflow.JobTimeout) * time.Second,
		retryBackoff: time.Duration(cfg.Workflow.RetryBackoff) * time.Second,
	}
}

// Start launches the worker pool. Jobs left in processing by an
// earlier crash are reset to pending before workers begin claiming.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if len(m.pipelines) == 0 {
		return errors.New("no diagnostic pipelines configured")
	}

	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		m.logger.Info("reset stuck processing jobs", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	workers := m.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i)
	}

	m.logger.Info("workflow started", logging.Int("workers", workers))
	return nil
}

// Stop prevents further claims and waits for in-flight jobs. Claimed
// jobs finish their current attempt.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped")
}

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_claim_failed"))
			m.sleep(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second)
			continue
		}
		if job == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		m.processJob(ctx, logger, job)
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
