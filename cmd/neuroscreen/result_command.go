package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"neuroscreen/internal/config"
	"neuroscreen/internal/queue"
	"neuroscreen/internal/results"
)

func newResultCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "result <jobID|jobUUID>",
		Short: "Show the assessment for a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			job, err := lookupJob(cmd, cfg, args[0])
			if err != nil {
				return err
			}

			store, err := results.Open(cfg)
			if err != nil {
				return fmt.Errorf("open result store: %w", err)
			}
			defer store.Close()

			assessment, err := store.GetByJobUUID(cmd.Context(), job.UUID)
			if err != nil {
				return err
			}
			if assessment == nil {
				if !job.IsTerminal() {
					return fmt.Errorf("job %s has no assessment yet (status %s)", job.UUID, job.Status)
				}
				return fmt.Errorf("no assessment recorded for job %s", job.UUID)
			}

			encoded, err := json.MarshalIndent(assessment, "", "  ")
			if err != nil {
				return fmt.Errorf("encode assessment: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
}

// lookupJob resolves a numeric queue ID or a job UUID to its queue record.
func lookupJob(cmd *cobra.Command, cfg *config.Config, ref string) (*queue.Job, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	var job *queue.Job
	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
		job, err = store.GetByID(cmd.Context(), id)
	} else {
		job, err = store.GetByUUID(cmd.Context(), ref)
	}
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %q not found", ref)
	}
	return job, nil
}
