// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe through the process runner and decodes streams and
// container format. Result helpers answer the questions the pipeline asks of
// a file: its first video stream, frame geometry, colour depth, interlacing,
// and the subtitle and audio tracks it carries.
package ffprobe
