// Package subtitles converts the container's image subtitles for the
// configured language into SRT files with an OCR tool and marks the forced
// track by file name so the muxer can flag it.
package subtitles
