// Package services defines shared utilities consumed by the workflow
// orchestrator and the stage handlers.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, batch positions, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the closed set of error codes (VALIDATION_ERROR, TIMEOUT_ERROR,
//     MAX_RETRIES_EXCEEDED, SCHEMA_VALIDATION_ERROR, WORKFLOW_ERROR,
//     BATCH_PROCESSING_ERROR).
//   - Retry classification so the retry controller and the orchestrator agree
//     on which failures are deterministic.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
