package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"promptflow/internal/execlog"
	"promptflow/internal/metrics"
	"promptflow/internal/stage"
	"promptflow/internal/workflow"
)

func renderResult(out io.Writer, res *workflow.Result) {
	report := newReportWriter(out)
	title := strings.TrimSpace(res.Context.Input.Title)
	if title == "" {
		title = res.RunID
	}
	report.heading(title)

	if res.Success {
		report.check("Result", outcomeOK, string(res.State))
	} else {
		message := string(res.State)
		if res.FailedStage != "" {
			message = fmt.Sprintf("%s at %s", message, res.FailedStage)
		}
		report.check("Result", outcomeFail, message)
	}
	report.field("Run ID", res.RunID)
	report.field("Steps completed", fmt.Sprintf("%d/%d", res.Log.StepsCompleted, len(stage.Names())))
	if len(res.Log.SkippedStages) > 0 {
		report.field("Skipped", strings.Join(res.Log.SkippedStages, ", "))
	}
	if p := res.FinalPrompt; p != nil {
		report.field("Prompt", p.ID)
		report.field("Shots", strconv.Itoa(len(p.PromptStructure.ShotBreakdown)))
		report.field("Estimated tokens", strconv.Itoa(p.Metadata.EstimatedTokens))
	}
	if q := res.QualityReport; q != nil {
		o := outcomeOK
		if !q.Passed() {
			o = outcomeWarn
		}
		report.check("Quality", o, fmt.Sprintf("%.2f (threshold %.2f)", q.OverallScore, q.Threshold))
		report.field("Estimated cost", fmt.Sprintf("$%.4f", q.EstimatedCost))
		report.field("Generation time", fmt.Sprintf("%.0fs", q.EstimatedGenerationTime))
	}
	if res.Error != nil {
		report.check("Error", outcomeFail, fmt.Sprintf("%s: %s", res.Error.Code, res.Error.Message))
	}
	report.blank()
	fmt.Fprintln(out, renderStepsTable(res.Log))
}

func renderStepsTable(summary execlog.Summary) string {
	rows := make([][]string, 0, len(summary.Steps))
	for _, step := range summary.Steps {
		status := "ok"
		switch {
		case step.Skipped && step.Reused:
			status = "reused"
		case step.Skipped:
			status = "skipped"
		case !step.Success:
			status = "failed"
		}
		errText := ""
		if step.Error != nil {
			errText = string(step.Error.Code)
		}
		rows = append(rows, []string{
			step.Stage,
			status,
			strconv.Itoa(step.RetryCount),
			yesNo(step.FromCache),
			formatDuration(step.Duration),
			errText,
		})
	}
	return renderTable(
		[]string{"Stage", "Status", "Retries", "Cached", "Duration", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func renderBatchTable(results []*workflow.Result) string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		score := "-"
		if res.QualityReport != nil {
			score = fmt.Sprintf("%.2f", res.QualityReport.OverallScore)
		}
		errText := ""
		if res.Error != nil {
			errText = string(res.Error.Code)
		}
		rows = append(rows, []string{
			strconv.Itoa(res.BatchIndex + 1),
			res.Context.Input.Title,
			string(res.State),
			yesNo(res.Retried),
			score,
			errText,
		})
	}
	return renderTable(
		[]string{"#", "Title", "State", "Retried", "Score", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderMetricsTable(samples []metrics.Sample) string {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{s.Name, s.Labels, strconv.FormatFloat(s.Value, 'f', -1, 64)})
	}
	return renderTable([]string{"Metric", "Labels", "Value"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}
