package story

// Stage names in pipeline order.
const (
	StageStoryAnalysis     = "storyAnalysis"
	StageFourActGeneration = "fourActGeneration"
	StageShotBreakdown     = "shotBreakdown"
	StagePromptGeneration  = "promptGeneration"
	StageQualityValidation = "qualityValidation"
)

// RunContext accumulates the outputs of one run. Treat it as a value: use
// Apply to derive the next context instead of assigning fields in place.
type RunContext struct {
	Input             StoryInput         `json:"input"`
	AnalyzedStory     *AnalyzedStory     `json:"analyzedStory,omitempty"`
	FourActStructure  *FourActStructure  `json:"fourActStructure,omitempty"`
	ShotBreakdown     *ShotBreakdown     `json:"shotBreakdown,omitempty"`
	VideoPlanetPrompt *VideoPlanetPrompt `json:"videoPlanetPrompt,omitempty"`
	OptimizedPrompt   *VideoPlanetPrompt `json:"optimizedPrompt,omitempty"`
	QualityReport     *QualityReport     `json:"qualityReport,omitempty"`
}

// Delta is the partial output of a single stage.
type Delta struct {
	AnalyzedStory     *AnalyzedStory     `json:"analyzedStory,omitempty"`
	FourActStructure  *FourActStructure  `json:"fourActStructure,omitempty"`
	ShotBreakdown     *ShotBreakdown     `json:"shotBreakdown,omitempty"`
	VideoPlanetPrompt *VideoPlanetPrompt `json:"videoPlanetPrompt,omitempty"`
	OptimizedPrompt   *VideoPlanetPrompt `json:"optimizedPrompt,omitempty"`
	QualityReport     *QualityReport     `json:"qualityReport,omitempty"`
}

// NewRunContext starts a context from the caller's input.
func NewRunContext(in StoryInput) RunContext {
	return RunContext{Input: in}
}

// Apply returns a new context with every non-nil delta field folded in.
func (rc RunContext) Apply(d Delta) RunContext {
	next := rc
	if d.AnalyzedStory != nil {
		next.AnalyzedStory = d.AnalyzedStory
	}
	if d.FourActStructure != nil {
		next.FourActStructure = d.FourActStructure
	}
	if d.ShotBreakdown != nil {
		next.ShotBreakdown = d.ShotBreakdown
	}
	if d.VideoPlanetPrompt != nil {
		next.VideoPlanetPrompt = d.VideoPlanetPrompt
	}
	if d.OptimizedPrompt != nil {
		next.OptimizedPrompt = d.OptimizedPrompt
	}
	if d.QualityReport != nil {
		next.QualityReport = d.QualityReport
	}
	return next
}

// Empty reports whether the delta carries no output.
func (d Delta) Empty() bool {
	return d == Delta{}
}

// Has reports whether the output of the named stage is already present.
func (rc RunContext) Has(stageName string) bool {
	switch stageName {
	case StageStoryAnalysis:
		return rc.AnalyzedStory != nil
	case StageFourActGeneration:
		return rc.FourActStructure != nil
	case StageShotBreakdown:
		return rc.ShotBreakdown != nil
	case StagePromptGeneration:
		return rc.VideoPlanetPrompt != nil
	case StageQualityValidation:
		return rc.QualityReport != nil && rc.OptimizedPrompt != nil
	default:
		return false
	}
}

// FinalPrompt returns the optimized prompt when the quality gate ran,
// otherwise the generated prompt.
func (rc RunContext) FinalPrompt() *VideoPlanetPrompt {
	if rc.OptimizedPrompt != nil {
		return rc.OptimizedPrompt
	}
	return rc.VideoPlanetPrompt
}
