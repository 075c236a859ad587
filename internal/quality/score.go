package quality

import (
	"fmt"
	"math"
	"strings"

	"promptflow/internal/story"
	"promptflow/internal/tokens"
)

// Deductions applied to the starting score of 1.0.
const (
	PenaltyMissingStyleGuide       = 0.3
	PenaltyShotCount               = 0.2
	PenaltyMissingGeneration       = 0.5
	PenaltyEmptyShotPrompt         = 0.05
	PenaltyDurationDrift           = 0.1
	PenaltyCharacterConsistencyOff = 0.1

	// DurationTolerance is the allowed gap in seconds between the summed
	// shot durations and the target duration.
	DurationTolerance = 0.5
)

// Cost and time model constants.
const (
	costPerThousandTokens = 0.002
	costPerSecond         = 0.05
	costOptimizedFactor   = 0.6
	secondsPerShot        = 20.0
)

// Options tune a quality evaluation.
type Options struct {
	MinConsistencyScore     float64
	MaxRegenerationAttempts int
	RequireManualApproval   bool
	CostOptimization        bool
	Concurrency             int
	// TargetDuration enables the duration drift check when positive.
	TargetDuration int
	// Characters is the number of characters in the story input.
	Characters int
	Counter    tokens.Counter
}

func (o Options) counter() tokens.Counter {
	if o.Counter == nil {
		return tokens.Heuristic{}
	}
	return o.Counter
}

// Score rates a prompt. It never modifies p.
func Score(p *story.VideoPlanetPrompt, opts Options) story.QualityReport {
	report := story.QualityReport{
		Threshold:              opts.MinConsistencyScore,
		ManualApprovalRequired: opts.RequireManualApproval,
		Issues:                 []story.Issue{},
		Suggestions:            []string{},
	}
	if p == nil {
		report.Issues = append(report.Issues, story.Issue{
			Kind: story.IssueError, Category: "completeness", Severity: story.SeverityHigh,
			Message: "prompt is missing",
		})
		return report
	}

	consistency, completeness, technical := 1.0, 1.0, 1.0
	add := func(kind story.IssueKind, category string, severity story.Severity, message, suggestion string) {
		report.Issues = append(report.Issues, story.Issue{Kind: kind, Category: category, Message: message, Severity: severity})
		if suggestion != "" {
			report.Suggestions = append(report.Suggestions, suggestion)
		}
	}

	guide := p.PromptStructure.StyleGuide
	if guide == nil {
		consistency -= PenaltyMissingStyleGuide
		add(story.IssueError, "consistency", story.SeverityHigh,
			"style guide is missing",
			"Add a style guide with art style, color palette and mood so shots render consistently")
	} else if opts.Characters > 0 && !guide.CharacterConsistency.Enabled {
		consistency -= PenaltyCharacterConsistencyOff
		add(story.IssueWarning, "consistency", story.SeverityMedium,
			"character consistency is disabled for a story with characters",
			"Enable character consistency so recurring characters keep their appearance")
	}

	shots := p.PromptStructure.ShotBreakdown
	if len(shots) != story.ShotCount {
		completeness -= PenaltyShotCount
		add(story.IssueError, "completeness", story.SeverityHigh,
			fmt.Sprintf("expected %d shots, found %d", story.ShotCount, len(shots)),
			"Regenerate the shot breakdown so every act has three shots")
	}
	empty := 0
	for _, shot := range shots {
		if strings.TrimSpace(shot.GenerationPrompt) == "" {
			empty++
		}
	}
	if empty > 0 {
		completeness -= PenaltyEmptyShotPrompt * float64(empty)
		add(story.IssueWarning, "completeness", story.SeverityMedium,
			fmt.Sprintf("%d shot(s) have an empty generation prompt", empty),
			"Fill in generation prompts for every shot")
	}

	if p.GenerationSettings == nil {
		technical -= PenaltyMissingGeneration
		add(story.IssueError, "technical", story.SeverityHigh,
			"generation settings are missing",
			"Configure a generation provider and model")
	}
	total := shotDuration(shots)
	if opts.TargetDuration > 0 && math.Abs(total-float64(opts.TargetDuration)) > DurationTolerance {
		technical -= PenaltyDurationDrift
		add(story.IssueWarning, "technical", story.SeverityLow,
			fmt.Sprintf("shot durations sum to %.1fs, target is %ds", total, opts.TargetDuration),
			"Rebalance shot durations to match the target duration")
	}

	report.ConsistencyScore = clampScore(consistency)
	report.CompletenessScore = clampScore(completeness)
	report.TechnicalScore = clampScore(technical)
	report.OverallScore = round4((report.ConsistencyScore + report.CompletenessScore + report.TechnicalScore) / 3)

	tokenCount := p.Metadata.EstimatedTokens
	if tokenCount <= 0 {
		tokenCount = countPromptTokens(shots, opts.counter())
	}
	report.EstimatedCost = EstimateCost(tokenCount, total, opts.CostOptimization)
	report.EstimatedGenerationTime = EstimateTime(len(shots), opts.Concurrency)

	if len(report.Issues) == 0 {
		report.Issues = append(report.Issues, story.Issue{
			Kind: story.IssueInfo, Category: "overall", Severity: story.SeverityLow,
			Message: "no defects found",
		})
	}
	return report
}

// EstimateCost prices a prompt in USD from its tokens and generated seconds.
func EstimateCost(tokenCount int, seconds float64, costOptimization bool) float64 {
	cost := float64(tokenCount)/1000*costPerThousandTokens + seconds*costPerSecond
	if costOptimization {
		cost *= costOptimizedFactor
	}
	return round4(cost)
}

// EstimateTime returns the expected generation time in seconds.
func EstimateTime(shots, concurrency int) float64 {
	if concurrency < 1 {
		concurrency = 1
	}
	return round4(float64(shots) * secondsPerShot / float64(concurrency))
}

func shotDuration(shots []story.Shot) float64 {
	total := 0.0
	for _, shot := range shots {
		total += shot.Duration
	}
	return math.Round(total*10) / 10
}

func countPromptTokens(shots []story.Shot, counter tokens.Counter) int {
	total := 0
	for _, shot := range shots {
		total += counter.Count(shot.GenerationPrompt)
	}
	return total
}

func clampScore(v float64) float64 {
	return round4(math.Max(0, math.Min(1, v)))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
