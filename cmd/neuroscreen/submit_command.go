package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"neuroscreen/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var patientJSON string
	var languageTag string

	cmd := &cobra.Command{
		Use:          "submit <modality> <media-reference>",
		Short:        "Queue an assessment job",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			modality, ok := queue.ParseModality(strings.ToLower(strings.TrimSpace(args[0])))
			if !ok {
				return fmt.Errorf("unknown modality %q (expected voice or mri)", args[0])
			}

			payload, err := buildPatientPayload(patientJSON, languageTag)
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}
			defer store.Close()

			job, err := store.Submit(cmd.Context(), modality, args[1], payload)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s job %d (%s)\n", job.Modality, job.ID, job.UUID)
			return nil
		},
	}

	cmd.Flags().StringVar(&patientJSON, "patient", "", "Patient context as a JSON object")
	cmd.Flags().StringVarP(&languageTag, "language", "l", "", "Recording language (BCP 47 tag, voice only)")
	return cmd
}

// buildPatientPayload validates the inputs and folds the language flag
// into the patient context. Everything else passes through untouched.
func buildPatientPayload(patientJSON, languageTag string) (string, error) {
	patient := map[string]any{}
	if strings.TrimSpace(patientJSON) != "" {
		if err := json.Unmarshal([]byte(patientJSON), &patient); err != nil {
			return "", fmt.Errorf("parse --patient: %w", err)
		}
	}

	if tag := strings.TrimSpace(languageTag); tag != "" {
		parsed, err := language.Parse(tag)
		if err != nil {
			return "", fmt.Errorf("invalid --language %q: %w", tag, err)
		}
		base, _ := parsed.Base()
		patient["language"] = base.String()
	}

	if len(patient) == 0 {
		return "", nil
	}
	encoded, err := json.Marshal(patient)
	if err != nil {
		return "", fmt.Errorf("encode patient context: %w", err)
	}
	return string(encoded), nil
}
