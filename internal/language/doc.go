// Package language converts between ISO 639-1, ISO 639-2 (both bibliographic
// and terminology forms), and display names for audio and subtitle tracks.
package language
