package workspace

import (
	"path/filepath"
	"strings"

	"spatialrip/internal/config"
)

// markerName flags a directory as a spatialrip work directory so cleanup never
// touches unrelated folders in the output root.
const markerName = ".spatialrip-work"

// Item is one work item's directory and artifact layout.
type Item struct {
	Name string
	Root string
	Dir  string
}

// New lays out the work item for name under outputRoot.
func New(outputRoot, name string) Item {
	return Item{
		Name: name,
		Root: outputRoot,
		Dir:  filepath.Join(outputRoot, name),
	}
}

func (i Item) artifact(suffix string) string {
	return filepath.Join(i.Dir, i.Name+suffix)
}

// MVC is the Annex-B bitstream copied out of the container.
func (i Item) MVC() string { return i.artifact("_mvc.h264") }

// PCM is the decoded first audio track.
func (i Item) PCM() string { return i.artifact("_audio_PCM.mov") }

// AAC is the transcoded audio track.
func (i Item) AAC() string { return i.artifact("_audio_AAC.mov") }

// Left is the encoded left-eye movie.
func (i Item) Left() string { return i.artifact("_left_movie.mov") }

// Right is the encoded right-eye movie.
func (i Item) Right() string { return i.artifact("_right_movie.mov") }

// MVHEVC is the merged spatial video.
func (i Item) MVHEVC() string { return i.artifact("_MV-HEVC.mov") }

// Final is the muxed deliverable inside the work directory.
func (i Item) Final() string { return i.artifact(config.FinalFileTag + ".mov") }

// FinalName is the deliverable's file name.
func (i Item) FinalName() string { return filepath.Base(i.Final()) }

// Destination is where the deliverable lands in the output root.
func (i Item) Destination() string { return filepath.Join(i.Root, i.FinalName()) }

// LeftFIFO and RightFIFO are the named pipes between decoder and encoders.
func (i Item) LeftFIFO() string  { return filepath.Join(i.Dir, "left_fifo") }
func (i Item) RightFIFO() string { return filepath.Join(i.Dir, "right_fifo") }

// Upscaled returns the path fx-upscale writes for an eye movie.
func Upscaled(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + " Upscaled" + ext
}

// LogPath returns the process log kept beside an output file.
func LogPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".log"
}
