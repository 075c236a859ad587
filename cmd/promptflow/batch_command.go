package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"promptflow/internal/story"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var opts outputOptions

	cmd := &cobra.Command{
		Use:   "batch <stories.json>...",
		Short: "Run the workflow for many stories",
		Long: "Run the workflow for every story in the given files. Each file holds one story " +
			"or a JSON array of stories. Grouping, parallelism, and failure handling follow the " +
			"[batch] configuration section.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var inputs []story.StoryInput
			for _, path := range args {
				batch, err := readStoryInputs(path)
				if err != nil {
					return err
				}
				inputs = append(inputs, batch...)
			}

			m := opts.metrics()
			orch, err := ctx.orchestrator(m)
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if err := orch.Preflight(runCtx); err != nil {
				return err
			}

			results, batchErr := orch.RunBatch(runCtx, inputs)
			for _, res := range results {
				if dir := batchOutputDir(opts.outDir, res); dir != "" {
					if _, err := writeArtifacts(runCtx, dir, res); err != nil {
						return errors.Join(batchErr, err)
					}
				}
			}

			if opts.jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return errors.Join(batchErr, err)
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderBatchTable(results))
			}
			if err := opts.finish(runCtx, cmd, m); err != nil {
				return errors.Join(batchErr, err)
			}
			if batchErr != nil {
				return batchErr
			}

			failed := 0
			for _, res := range results {
				if !res.Success {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d stories failed", failed, len(results))
			}
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}
