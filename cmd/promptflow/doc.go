// Command promptflow runs the story-to-prompt workflow from the command line.
//
// It loads the TOML configuration, builds a workflow orchestrator, and
// exposes single runs, batches, individual stages, and configuration
// helpers as subcommands.
package main
