package config

import "spatialrip/internal/stage"

const (
	defaultConfigPath        = "~/.config/spatialrip/config.toml"
	defaultOutputRoot        = "~/Movies"
	defaultLogDir            = "~/.local/share/spatialrip/logs"
	defaultStateDir          = "~/.local/share/spatialrip"
	defaultMinFreeGiB        = 100
	defaultLanguage          = "eng"
	defaultLeftRightBitrate  = 20
	defaultMVHEVCQuality     = 75
	defaultFieldOfView       = 90
	defaultAudioBitrate      = 384
	defaultCropSampleOffset  = 600
	defaultCropSampleFrames  = 300
	defaultWatchSettle       = 30
	defaultOpticalDevice     = "/dev/sr0"
	defaultNtfyTimeout       = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultMakeMKVBinary     = "makemkvcon"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultWineBinary        = "wine"
	defaultFRIMDecodeBinary  = "~/.wine/drive_c/FRIM/FRIMDecode64.exe"
	defaultSpatialMediaKit   = "spatial-media-kit-tool"
	defaultMP4BoxBinary      = "MP4Box"
	defaultFXUpscaleBinary   = "fx-upscale"
	defaultSubtitleOCRBinary = "pgsrip"
)

// FinalFileTag is appended to the title for the deliverable file name.
const FinalFileTag = "_AVP"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputRoot: defaultOutputRoot,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
			MinFreeGiB: defaultMinFreeGiB,
		},
		Pipeline: Pipeline{
			StartStage: stage.First,
			KeepAwake:  true,
		},
		Source: Source{
			Language: defaultLanguage,
		},
		Video: Video{
			LeftRightBitrate: defaultLeftRightBitrate,
			MVHEVCQuality:    defaultMVHEVCQuality,
			FieldOfView:      defaultFieldOfView,
			CropSampleOffset: defaultCropSampleOffset,
			CropSampleFrames: defaultCropSampleFrames,
		},
		Audio: Audio{
			Bitrate: defaultAudioBitrate,
		},
		Tools: Tools{
			MakeMKV:         defaultMakeMKVBinary,
			FFmpeg:          defaultFFmpegBinary,
			FFprobe:         defaultFFprobeBinary,
			Wine:            defaultWineBinary,
			FRIMDecode:      defaultFRIMDecodeBinary,
			SpatialMediaKit: defaultSpatialMediaKit,
			MP4Box:          defaultMP4BoxBinary,
			FXUpscale:       defaultFXUpscaleBinary,
			SubtitleOCR:     defaultSubtitleOCRBinary,
		},
		Watch: Watch{
			SettleSeconds: defaultWatchSettle,
			OpticalDevice: defaultOpticalDevice,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
