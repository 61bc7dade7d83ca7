package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputRoot) == "" {
		c.Paths.OutputRoot = defaultOutputRoot
	}
	if c.Paths.OutputRoot, err = expandPath(strings.TrimSpace(c.Paths.OutputRoot)); err != nil {
		return fmt.Errorf("paths.output_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.Language = strings.ToLower(strings.TrimSpace(c.Source.Language))
	if c.Source.Language == "" {
		c.Source.Language = defaultLanguage
	}
	c.Source.FrameRate = strings.TrimSpace(c.Source.FrameRate)
	c.Source.Resolution = strings.ToLower(strings.TrimSpace(c.Source.Resolution))
}

// toolEnvOverrides maps environment variables to the tool fields they replace.
func (c *Config) toolEnvOverrides() map[string]*string {
	return map[string]*string{
		"SPATIALRIP_MAKEMKVCON":        &c.Tools.MakeMKV,
		"SPATIALRIP_FFMPEG":            &c.Tools.FFmpeg,
		"SPATIALRIP_FFPROBE":           &c.Tools.FFprobe,
		"SPATIALRIP_WINE":              &c.Tools.Wine,
		"SPATIALRIP_FRIM_DECODE":       &c.Tools.FRIMDecode,
		"SPATIALRIP_SPATIAL_MEDIA_KIT": &c.Tools.SpatialMediaKit,
		"SPATIALRIP_MP4BOX":            &c.Tools.MP4Box,
		"SPATIALRIP_FX_UPSCALE":        &c.Tools.FXUpscale,
		"SPATIALRIP_SUBTITLE_OCR":      &c.Tools.SubtitleOCR,
	}
}

func (c *Config) normalizeTools() error {
	for key, field := range c.toolEnvOverrides() {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*field = value
		}
	}
	defaults := Default().Tools
	fill := func(field *string, fallback string) {
		*field = strings.TrimSpace(*field)
		if *field == "" {
			*field = fallback
		}
	}
	fill(&c.Tools.MakeMKV, defaults.MakeMKV)
	fill(&c.Tools.FFmpeg, defaults.FFmpeg)
	fill(&c.Tools.FFprobe, defaults.FFprobe)
	fill(&c.Tools.Wine, defaults.Wine)
	fill(&c.Tools.FRIMDecode, defaults.FRIMDecode)
	fill(&c.Tools.SpatialMediaKit, defaults.SpatialMediaKit)
	fill(&c.Tools.MP4Box, defaults.MP4Box)
	fill(&c.Tools.FXUpscale, defaults.FXUpscale)
	fill(&c.Tools.SubtitleOCR, defaults.SubtitleOCR)

	// The decoder runs under wine, so it is addressed by path rather than PATH lookup.
	var err error
	if c.Tools.FRIMDecode, err = expandPath(c.Tools.FRIMDecode); err != nil {
		return fmt.Errorf("tools.frim_decode: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatch() {
	c.Watch.OpticalDevice = strings.TrimSpace(c.Watch.OpticalDevice)
	if c.Watch.OpticalDevice == "" {
		c.Watch.OpticalDevice = defaultOpticalDevice
	}
}

func (c *Config) normalizeNotifications() {
	if topic, ok := os.LookupEnv("SPATIALRIP_NTFY_TOPIC"); ok && strings.TrimSpace(topic) != "" {
		c.Notifications.NtfyTopic = topic
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
