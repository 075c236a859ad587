// Package workflow runs story inputs through the five prompt generation
// stages.
//
// The Orchestrator executes stages strictly in order for a single run,
// consulting the result cache before each stage and wrapping every execution
// in the retry controller with a per-attempt timeout. Every attempt lands in
// the run's execution log. A stage that fails after its retries stops the run
// (fail-fast) and the caller receives a structured Result carrying the partial
// log together with a WORKFLOW_ERROR.
//
// RunBatch fans inputs out in groups. Groups run one after another; members of
// a group run concurrently when parallel steps are enabled. The configured
// failure handling decides whether the first failure stops the batch, whether
// failures are collected, or whether failed inputs get one more run.
//
// Add new stages by extending StageSet and the stage name order in
// internal/stage; this package is the authoritative home for that
// coordination logic.
package workflow
