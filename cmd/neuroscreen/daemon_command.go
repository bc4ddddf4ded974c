package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"neuroscreen/internal/deps"
	"neuroscreen/internal/inference"
	"neuroscreen/internal/logging"
	"neuroscreen/internal/mediastore"
	"neuroscreen/internal/mri"
	"neuroscreen/internal/notifications"
	"neuroscreen/internal/pipeline"
	"neuroscreen/internal/queue"
	"neuroscreen/internal/results"
	"neuroscreen/internal/voice"
	"neuroscreen/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "daemon",
		Short:        "Run the inference daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// One daemon per data directory.
			lock := flock.New(filepath.Join(cfg.Paths.DataDir, "neuroscreen.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire daemon lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another daemon already holds %s", lock.Path())
			}
			defer lock.Unlock()

			pidPath := filepath.Join(cfg.Paths.DataDir, "neuroscreen.pid")
			if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
				return fmt.Errorf("write pid file: %w", err)
			}
			defer os.Remove(pidPath)

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			for _, missing := range deps.Missing(deps.Check(deps.Requirements(cfg))) {
				logger.Warn("dependency unavailable",
					logging.String("name", missing.Name),
					logging.String("detail", missing.Detail))
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}
			defer store.Close()

			resultStore, err := results.Open(cfg)
			if err != nil {
				return fmt.Errorf("open result store: %w", err)
			}
			defer resultStore.Close()

			media, err := mediastore.New(runCtx, cfg)
			if err != nil {
				return fmt.Errorf("initialize media store: %w", err)
			}

			var pipelines map[queue.Modality]pipeline.DiagnosticPipeline
			registry, err := inference.Load(cfg, logger)
			if err != nil {
				// The daemon stays up so jobs fail with a retryable
				// model-unavailable kind instead of piling up unclaimed.
				logger.Error("model load failed", logging.Error(err))
				pipelines = map[queue.Modality]pipeline.DiagnosticPipeline{
					queue.ModalityVoice: pipeline.Unavailable(queue.ModalityVoice, err),
					queue.ModalityMRI:   pipeline.Unavailable(queue.ModalityMRI, err),
				}
			} else {
				defer registry.Close()
				pipelines = map[queue.Modality]pipeline.DiagnosticPipeline{
					queue.ModalityVoice: voice.NewPipeline(registry, logger),
					queue.ModalityMRI:   mri.NewPipeline(registry, logger),
				}
			}

			manager := workflow.NewManager(cfg, store, resultStore, media,
				pipelines, notifications.NewService(cfg), logger)
			if err := manager.Start(runCtx); err != nil {
				return fmt.Errorf("start workflow: %w", err)
			}

			logger.Info("daemon running", logging.String("data_dir", cfg.Paths.DataDir))
			<-runCtx.Done()

			logger.Info("shutting down")
			manager.Stop()
			return nil
		},
	}
}
