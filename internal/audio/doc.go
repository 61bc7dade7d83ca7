// Package audio transcodes the extracted PCM track to AAC.
package audio
