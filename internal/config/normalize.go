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
	c.normalizeMediaStore()
	c.normalizeEngine()
	c.normalizeEncoding()
	c.Notifications.WebhookURL = strings.TrimSpace(c.Notifications.WebhookURL)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("REELSMITH_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeMediaStore() {
	if c.MediaStore.BaseURL == "" {
		if value, ok := os.LookupEnv("REELSMITH_MEDIA_URL"); ok {
			c.MediaStore.BaseURL = value
		}
	}
	c.MediaStore.BaseURL = strings.TrimRight(strings.TrimSpace(c.MediaStore.BaseURL), "/")
	if c.MediaStore.APIToken == "" {
		if value, ok := os.LookupEnv("REELSMITH_MEDIA_TOKEN"); ok {
			c.MediaStore.APIToken = strings.TrimSpace(value)
		}
	}
	c.MediaStore.Collection = strings.Trim(strings.TrimSpace(c.MediaStore.Collection), "/")
	if c.MediaStore.Collection == "" {
		c.MediaStore.Collection = defaultMediaCollection
	}
}

func (c *Config) normalizeEngine() {
	c.Engine.FFmpegBinary = strings.TrimSpace(c.Engine.FFmpegBinary)
	if c.Engine.FFmpegBinary == "" {
		c.Engine.FFmpegBinary = defaultFFmpegBinary
	}
	c.Engine.FFprobeBinary = strings.TrimSpace(c.Engine.FFprobeBinary)
	if c.Engine.FFprobeBinary == "" {
		c.Engine.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeEncoding() {
	c.Encoding.OutputFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Encoding.OutputFormat), "."))
	if c.Encoding.OutputFormat == "" {
		c.Encoding.OutputFormat = defaultOutputFormat
	}
	c.Encoding.Preset = strings.ToLower(strings.TrimSpace(c.Encoding.Preset))
	if c.Encoding.Preset == "" {
		c.Encoding.Preset = defaultPreset
	}
	if strings.TrimSpace(c.Encoding.VideoCodec) == "" {
		c.Encoding.VideoCodec = defaultVideoCodec
	}
	if strings.TrimSpace(c.Encoding.AudioCodec) == "" {
		c.Encoding.AudioCodec = defaultAudioCodec
	}
	if strings.TrimSpace(c.Encoding.AudioBitrate) == "" {
		c.Encoding.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
