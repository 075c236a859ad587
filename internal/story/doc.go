// Package story defines the data flowing through the prompt workflow: the
// caller's StoryInput, every stage artifact, and the per-run RunContext that
// accumulates them.
//
// RunContext is a value. Stages never mutate it; they return a Delta which the
// orchestrator folds into a fresh context with Apply.
package story
