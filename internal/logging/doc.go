// Package logging assembles the slog loggers used across spatialrip.
//
// Console output is either a human-readable layout (timestamp, level,
// component, item and stage subject, then indented fields) or JSON. When a log
// directory is configured every record is also appended as JSON to
// spatialrip.log so long unattended batch runs can be inspected afterwards.
// Context helpers tag records with the work item, stage, and run identifier.
package logging
