package stages

import "promptflow/internal/story"

// analysisFor returns the analysis in rc, or one derived from the input alone
// when the analysis stage did not run.
func analysisFor(rc story.RunContext) *story.AnalyzedStory {
	if rc.AnalyzedStory != nil {
		return rc.AnalyzedStory
	}
	return analyzeStory(rc.Input)
}

// actsFor returns the four acts in rc, or splits the target duration by the
// default act ratios when the four-act stage did not run.
func actsFor(rc story.RunContext) *story.FourActStructure {
	if rc.FourActStructure != nil {
		return rc.FourActStructure
	}
	return buildFourActs(rc.Input, analysisFor(rc))
}

// shotsFor returns the shot breakdown in rc, or plans one from the acts when
// the shot breakdown stage did not run.
func shotsFor(stageName string, rc story.RunContext) (*story.ShotBreakdown, error) {
	if rc.ShotBreakdown != nil {
		return rc.ShotBreakdown, nil
	}
	acts := actsFor(rc)
	if err := checkActs(stageName, acts); err != nil {
		return nil, err
	}
	return buildShots(rc.Input, acts), nil
}
