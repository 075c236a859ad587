package workflow

import "promptflow/internal/stage"

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (o *Orchestrator) ConfigureStages(set StageSet) {
	handlers := map[string]stage.Handler{
		stage.StoryAnalysis:     set.StoryAnalysis,
		stage.FourActGeneration: set.FourActGeneration,
		stage.ShotBreakdown:     set.ShotBreakdown,
		stage.PromptGeneration:  set.PromptGeneration,
		stage.QualityValidation: set.QualityValidation,
	}
	pipeline := make([]pipelineStage, 0, len(handlers))
	for _, name := range stage.Names() {
		if h := handlers[name]; h != nil {
			pipeline = append(pipeline, pipelineStage{name: name, handler: h})
		}
	}

	o.mu.Lock()
	o.pipeline = pipeline
	o.mu.Unlock()
}

func (o *Orchestrator) stagesSnapshot() []pipelineStage {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]pipelineStage(nil), o.pipeline...)
}

func (o *Orchestrator) lookupStage(name string) (pipelineStage, bool) {
	for _, p := range o.stagesSnapshot() {
		if p.name == name {
			return p, true
		}
	}
	return pipelineStage{}, false
}
