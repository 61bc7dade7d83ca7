package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	resolutionPattern = regexp.MustCompile(`^\d+x\d+$`)
	frameRatePattern  = regexp.MustCompile(`^\d+(\.\d+)?(/\d+)?$`)
	languagePattern   = regexp.MustCompile(`^[a-z]{3}$`)
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputRoot == "" {
		return errors.New("paths.output_root must be set")
	}
	if c.Paths.MinFreeGiB < 0 {
		return errors.New("paths.min_free_gib must be zero or positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if !c.Pipeline.StartStage.Valid() {
		return fmt.Errorf("pipeline.start_stage %d is not a known stage", int(c.Pipeline.StartStage))
	}
	return nil
}

func (c *Config) validateSource() error {
	if !languagePattern.MatchString(c.Source.Language) {
		return fmt.Errorf("source.language must be a three-letter ISO 639-2 code, got %q", c.Source.Language)
	}
	if c.Source.FrameRate != "" && !frameRatePattern.MatchString(c.Source.FrameRate) {
		return fmt.Errorf("source.frame_rate must look like 23.976 or 24000/1001, got %q", c.Source.FrameRate)
	}
	if c.Source.Resolution != "" && !resolutionPattern.MatchString(c.Source.Resolution) {
		return fmt.Errorf("source.resolution must look like 1920x1080, got %q", c.Source.Resolution)
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.LeftRightBitrate <= 0 {
		return errors.New("video.left_right_bitrate must be positive")
	}
	if c.Video.MVHEVCQuality < 0 || c.Video.MVHEVCQuality > 100 {
		return errors.New("video.mv_hevc_quality must be between 0 and 100")
	}
	if c.Video.FieldOfView <= 0 || c.Video.FieldOfView > 360 {
		return errors.New("video.fov must be between 1 and 360")
	}
	if c.Video.CropSampleOffset < 0 {
		return errors.New("video.crop_sample_offset must be zero or positive")
	}
	if c.Video.CropSampleFrames <= 0 {
		return errors.New("video.crop_sample_frames must be positive")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.Bitrate <= 0 {
		return errors.New("audio.bitrate must be positive")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.SettleSeconds < 0 {
		return errors.New("watch.settle_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be zero or positive")
	}
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", strings.TrimSpace(c.Logging.Level))
	}
	return nil
}
