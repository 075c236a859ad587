// Package quality scores generated prompts and rewrites their shot prompts
// when the score falls below the configured threshold.
//
// Scoring never mutates the prompt it is given. Optimization works on a
// clone and only touches generation prompt text and the token estimate.
package quality
