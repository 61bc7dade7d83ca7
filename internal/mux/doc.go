// Package mux assembles the deliverable.
//
// Merger combines the two eye movies into one MV-HEVC movie with
// spatial-media-kit-tool. Muxer wraps that movie, the audio, and any
// OCR'd subtitles into the final container with MP4Box.
package mux
