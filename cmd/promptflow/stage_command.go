package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"promptflow/internal/stage"
)

func newStageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stage <name> <context.json>",
		Short: "Run a single stage against a saved run context",
		Long: "Run one workflow stage against a run context file and print the stage result as JSON. " +
			"Stages: " + strings.Join(stage.Names(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if !stage.Known(name) {
				return fmt.Errorf("unknown stage %q (expected one of %s)", name, strings.Join(stage.Names(), ", "))
			}
			rc, err := readRunContext(args[1])
			if err != nil {
				return err
			}
			orch, err := ctx.orchestrator(nil)
			if err != nil {
				return err
			}
			result, err := orch.RunSingleStage(cmd.Context(), name, rc)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
}

func newStagesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List workflow stages with their settings and health",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(nil)
			if err != nil {
				return err
			}
			statuses := orch.StageStatus(cmd.Context())
			if jsonOutput {
				return writeJSON(cmd, statuses)
			}

			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				health := "ready"
				if !s.Health.Ready {
					health = "unhealthy"
				}
				if s.Health.Detail != "" {
					health += " (" + s.Health.Detail + ")"
				}
				rows = append(rows, []string{
					s.Name,
					yesNo(s.Enabled),
					formatDuration(s.Timeout),
					health,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Stage", "Enabled", "Timeout", "Health"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print stage status as JSON")
	return cmd
}
