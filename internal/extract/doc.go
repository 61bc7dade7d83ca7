// Package extract pulls the MVC bitstream and PCM audio out of the work
// container in one ffmpeg pass and measures the bitstream's colour depth.
package extract
