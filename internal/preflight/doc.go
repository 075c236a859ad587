// Package preflight checks the filesystem paths promptflow writes to before
// a run starts.
//
// The workflow orchestrator folds these results into its own preflight, and
// the CLI "config validate" command prints them as status lines.
package preflight
