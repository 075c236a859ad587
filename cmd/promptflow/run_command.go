package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"promptflow/internal/metrics"
	"promptflow/internal/textutil"
	"promptflow/internal/workflow"
)

const pushJob = "promptflow"

// outputOptions are shared by run and batch.
type outputOptions struct {
	jsonOutput  bool
	stats       bool
	outDir      string
	pushGateway string
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&o.stats, "stats", false, "Print gathered metrics after the run")
	cmd.Flags().StringVar(&o.outDir, "out", "", "Directory for prompt, quality, and execution log files")
	cmd.Flags().StringVar(&o.pushGateway, "push-gateway", "", "Prometheus Pushgateway URL to push metrics to")
}

func (o *outputOptions) metrics() *metrics.Metrics {
	if o.stats || strings.TrimSpace(o.pushGateway) != "" {
		return metrics.New()
	}
	return nil
}

// finish prints metrics and pushes them when requested.
func (o *outputOptions) finish(ctx context.Context, cmd *cobra.Command, m *metrics.Metrics) error {
	if m == nil {
		return nil
	}
	if o.stats && !o.jsonOutput {
		samples, err := m.Snapshot()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), renderMetricsTable(samples))
	}
	if gateway := strings.TrimSpace(o.pushGateway); gateway != "" {
		if err := m.Push(ctx, gateway, pushJob); err != nil {
			return err
		}
	}
	return nil
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts outputOptions

	cmd := &cobra.Command{
		Use:   "run <story.json>",
		Short: "Run the full workflow for one story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readStoryInputs(args[0])
			if err != nil {
				return err
			}
			if len(inputs) != 1 {
				return fmt.Errorf("%s holds %d stories; use `promptflow batch`", args[0], len(inputs))
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

			res, runErr := orch.RunFullWorkflow(runCtx, inputs[0])
			if res == nil {
				return runErr
			}
			if err := emitResult(runCtx, cmd, &opts, res, opts.outDir); err != nil {
				return errors.Join(runErr, err)
			}
			if err := opts.finish(runCtx, cmd, m); err != nil {
				return errors.Join(runErr, err)
			}
			return runErr
		},
	}
	opts.register(cmd)
	return cmd
}

// emitResult writes artifacts to dir when set and prints res.
func emitResult(ctx context.Context, cmd *cobra.Command, opts *outputOptions, res *workflow.Result, dir string) error {
	out := cmd.OutOrStdout()
	var written []string
	if strings.TrimSpace(dir) != "" {
		files, err := writeArtifacts(ctx, dir, res)
		if err != nil {
			return err
		}
		written = files
	}
	if opts.jsonOutput {
		return writeJSON(cmd, res)
	}
	renderResult(out, res)
	for _, path := range written {
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	return nil
}

func batchOutputDir(root string, res *workflow.Result) string {
	if strings.TrimSpace(root) == "" {
		return ""
	}
	name := textutil.Slug(res.Context.Input.Title, textutil.DefaultSlugLength)
	if name == "" {
		name = res.RunID
	}
	return filepath.Join(root, fmt.Sprintf("%03d-%s", res.BatchIndex+1, name))
}
