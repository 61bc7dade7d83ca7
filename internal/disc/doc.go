// Package disc classifies sources and turns them into an MKV container.
//
// A Source is an optical drive (disc:N or dev:/dev/srX), a disc image, a disc
// folder, a transport stream, or an existing MKV. The Prober reads MakeMKV's
// robot-mode transcript (or ffprobe for transport streams) into a Descriptor
// naming the title, its geometry, and which internal title carries the MVC
// stereo stream. The Ripper writes a selection profile and rips that title,
// or copies a file source into the work directory.
package disc
