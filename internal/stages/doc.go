// Package stages implements the five workflow stages: story analysis, four-act
// generation, shot breakdown, prompt generation, and quality validation.
//
// Every stage is deterministic for the fields named in its CacheKey. Prompt
// identifiers and timestamps are the only values that differ between two
// executions over the same key.
package stages
