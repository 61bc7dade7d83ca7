// Package services defines shared utilities consumed by the pipeline stages
// and the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp work item names, stage names, and correlation
//     identifiers for logging.
//   - Marker errors for every failure class the orchestrator distinguishes, the
//     Wrap helper for stage context, and ToolError for failed external commands
//     carrying the command line and captured diagnostics.
//
// Classify failures with errors.Is against the markers; the pipeline's recovery
// policy and the CLI both rely on that classification.
package services
