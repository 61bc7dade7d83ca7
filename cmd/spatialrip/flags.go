package main

import (
	"github.com/spf13/cobra"

	"spatialrip/internal/config"
	"spatialrip/internal/language"
	"spatialrip/internal/stage"
)

// pipelineFlags are the per-invocation overrides shared by run, batch, and
// watch. Only flags the operator set are applied.
type pipelineFlags struct {
	outputRoot      string
	startStage      string
	overwrite       bool
	keepFiles       bool
	continueOnError bool
	removeOriginal  bool
	noKeepAwake     bool
	outputCommands  bool

	language             string
	frameRate            string
	resolution           string
	removeExtraLanguages bool

	bitrate        int
	quality        int
	fov            int
	softwareEncode bool
	swapEyes       bool
	upscale        bool
	crop           bool

	transcodeAudio bool
	audioBitrate   int
	skipSubtitles  bool
	yes            bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.outputRoot, "output", "o", "", "Output root folder")
	fs.StringVar(&f.startStage, "start-stage", "", "Stage to start from (see spatialrip stages)")
	fs.BoolVar(&f.overwrite, "overwrite", false, "Replace an existing output file")
	fs.BoolVar(&f.keepFiles, "keep-files", false, "Keep intermediate files")
	fs.BoolVar(&f.continueOnError, "continue-on-error", false, "Continue past rip diagnostics and missing subtitles")
	fs.BoolVar(&f.removeOriginal, "remove-original", false, "Delete the source after a successful conversion")
	fs.BoolVar(&f.noKeepAwake, "no-keep-awake", false, "Allow the system to sleep during the run")
	fs.BoolVar(&f.outputCommands, "output-commands", false, "Log every external command line")

	fs.StringVar(&f.language, "language", "", "Audio and subtitle language")
	fs.StringVar(&f.frameRate, "frame-rate", "", "Override the probed frame rate")
	fs.StringVar(&f.resolution, "resolution", "", "Override the probed resolution (WxH)")
	fs.BoolVar(&f.removeExtraLanguages, "remove-extra-languages", false, "Rip only the selected language")

	fs.IntVar(&f.bitrate, "left-right-bitrate", 0, "Per-eye HEVC bitrate in Mbps")
	fs.IntVar(&f.quality, "mv-hevc-quality", 0, "MV-HEVC merge quality (0-100)")
	fs.IntVar(&f.fov, "fov", 0, "Horizontal field of view in degrees")
	fs.BoolVar(&f.softwareEncode, "software-encoder", false, "Use libx265 instead of the hardware encoder")
	fs.BoolVar(&f.swapEyes, "swap-eyes", false, "Swap left and right eyes")
	fs.BoolVar(&f.upscale, "upscale", false, "Upscale each eye with fx-upscale")
	fs.BoolVar(&f.crop, "crop-black-bars", false, "Detect and crop black bars")

	fs.BoolVar(&f.transcodeAudio, "transcode-audio", false, "Transcode audio to AAC")
	fs.IntVar(&f.audioBitrate, "audio-bitrate", 0, "AAC bitrate in kbps")
	fs.BoolVar(&f.skipSubtitles, "skip-subtitles", false, "Do not extract subtitles")
	fs.BoolVarP(&f.yes, "yes", "y", false, "Apply recoveries without asking")
}

// apply copies the flags the operator set onto cfg.
func (f *pipelineFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("output") {
		root, err := config.ExpandPath(f.outputRoot)
		if err != nil {
			return err
		}
		cfg.Paths.OutputRoot = root
	}
	if changed("start-stage") {
		s, err := stage.Parse(f.startStage)
		if err != nil {
			return err
		}
		cfg.Pipeline.StartStage = s
	}
	if changed("overwrite") {
		cfg.Pipeline.Overwrite = f.overwrite
	}
	if changed("keep-files") {
		cfg.Pipeline.KeepFiles = f.keepFiles
	}
	if changed("continue-on-error") {
		cfg.Pipeline.ContinueOnError = f.continueOnError
	}
	if changed("remove-original") {
		cfg.Pipeline.RemoveOriginal = f.removeOriginal
	}
	if changed("no-keep-awake") {
		cfg.Pipeline.KeepAwake = !f.noKeepAwake
	}
	if changed("output-commands") {
		cfg.Pipeline.OutputCommands = f.outputCommands
	}
	if changed("language") {
		cfg.Source.Language = language.ToISO3(f.language)
	}
	if changed("frame-rate") {
		cfg.Source.FrameRate = f.frameRate
	}
	if changed("resolution") {
		cfg.Source.Resolution = f.resolution
	}
	if changed("remove-extra-languages") {
		cfg.Source.RemoveExtraLanguages = f.removeExtraLanguages
	}
	if changed("left-right-bitrate") {
		cfg.Video.LeftRightBitrate = f.bitrate
	}
	if changed("mv-hevc-quality") {
		cfg.Video.MVHEVCQuality = f.quality
	}
	if changed("fov") {
		cfg.Video.FieldOfView = f.fov
	}
	if changed("software-encoder") {
		cfg.Video.SoftwareEncoder = f.softwareEncode
	}
	if changed("swap-eyes") {
		cfg.Video.SwapEyes = f.swapEyes
	}
	if changed("upscale") {
		cfg.Video.FXUpscale = f.upscale
	}
	if changed("crop-black-bars") {
		cfg.Video.CropBlackBars = f.crop
	}
	if changed("transcode-audio") {
		cfg.Audio.Transcode = f.transcodeAudio
	}
	if changed("audio-bitrate") {
		cfg.Audio.Bitrate = f.audioBitrate
	}
	if changed("skip-subtitles") {
		cfg.Subtitles.Skip = f.skipSubtitles
	}
	return cfg.EnsureDirectories()
}
