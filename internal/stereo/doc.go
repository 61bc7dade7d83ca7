// Package stereo turns the MVC bitstream into two encoded eye movies.
//
// The Splitter connects three external processes through two named pipes:
// FRIMDecode (under Wine) writes raw left and right frames into the pipes and
// one ffmpeg encoder per eye reads them. A FIFO writer blocks until a reader
// opens the other end, so both encoders are always started before the
// decoder. The pipes are removed when Split returns, whatever the outcome.
//
// The Upscaler runs fx-upscale over each eye movie.
package stereo
