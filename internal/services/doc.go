// Package services defines shared utilities consumed by the alignment
// stages and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and track roles for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into consistent outcomes (bad input, provider failure, cancellation).
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package services
