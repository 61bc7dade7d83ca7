// Package crop samples a title with ffmpeg's cropdetect filter and reduces the
// proposed rectangles to one that keeps picture content from every sample.
package crop
