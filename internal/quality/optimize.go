package quality

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"promptflow/internal/story"
	"promptflow/internal/tokens"
)

var repeatedPunct = regexp.MustCompile(`([!?.;:])[!?.;:]+`)

// NormalizePrompt removes duplicate comma-separated phrases and collapses
// whitespace and repeated punctuation. Phrases are compared after NFKC
// normalization and case folding; the first spelling is kept.
func NormalizePrompt(text string) string {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '，' })
	folder := cases.Fold()
	seen := make(map[string]struct{}, len(parts))
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		phrase := strings.Join(strings.Fields(part), " ")
		phrase = repeatedPunct.ReplaceAllString(phrase, "$1")
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		key := folder.String(norm.NFKC.String(phrase))
		key = strings.TrimRight(key, ".!?;: ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, phrase)
	}
	return strings.Join(kept, ", ")
}

// Optimize rewrites the shot prompts of a clone of p, repeating passes until
// nothing changes or maxPasses is reached. It returns the clone and the number
// of passes that changed text. The token estimate never grows.
func Optimize(p *story.VideoPlanetPrompt, maxPasses int, counter tokens.Counter) (*story.VideoPlanetPrompt, int) {
	out := p.Clone()
	if out == nil {
		return nil, 0
	}
	if counter == nil {
		counter = tokens.Heuristic{}
	}
	if maxPasses < 1 {
		maxPasses = 1
	}

	passes := 0
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for i := range out.PromptStructure.ShotBreakdown {
			shot := &out.PromptStructure.ShotBreakdown[i]
			rewritten := NormalizePrompt(shot.GenerationPrompt)
			if rewritten != shot.GenerationPrompt {
				shot.GenerationPrompt = rewritten
				changed = true
			}
		}
		if !changed {
			break
		}
		passes++
	}

	recounted := countPromptTokens(out.PromptStructure.ShotBreakdown, counter)
	if p.Metadata.EstimatedTokens > 0 && recounted > p.Metadata.EstimatedTokens {
		recounted = p.Metadata.EstimatedTokens
	}
	out.Metadata.EstimatedTokens = recounted
	return out, passes
}

// Evaluate scores p and, when the overall score is below the threshold,
// optimizes a clone. The returned prompt is always a clone, identical to p
// when no optimization ran.
func Evaluate(p *story.VideoPlanetPrompt, opts Options) (story.QualityReport, *story.VideoPlanetPrompt) {
	report := Score(p, opts)
	if p == nil {
		return report, nil
	}
	if report.OverallScore >= opts.MinConsistencyScore {
		return report, p.Clone()
	}

	optimized, passes := Optimize(p, opts.MaxRegenerationAttempts, opts.counter())
	report.Optimized = true
	report.OptimizationPasses = passes
	report.Suggestions = append(report.Suggestions, "Prompt text was deduplicated automatically; review the optimized prompt")
	return report, optimized
}
