package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var supportedFormats = map[string]struct{}{"mp4": {}, "mov": {}, "mkv": {}}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMediaStore(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMediaStore() error {
	if c.MediaStore.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("media_store.base_url is required. Set REELSMITH_MEDIA_URL env var or edit %s (create with 'reelsmith config init')", defaultPath)
	}
	parsed, err := url.Parse(c.MediaStore.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("media_store.base_url %q must be an absolute URL", c.MediaStore.BaseURL)
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.CRF < minCRF || c.Encoding.CRF > maxCRF {
		return fmt.Errorf("encoding.crf must be between %d and %d", minCRF, maxCRF)
	}
	if _, ok := supportedFormats[c.Encoding.OutputFormat]; !ok {
		return fmt.Errorf("encoding.output_format %q is not supported (use mp4, mov or mkv)", c.Encoding.OutputFormat)
	}
	if err := ensurePositiveMap(map[string]int{
		"encoding.width":             c.Encoding.Width,
		"encoding.height":            c.Encoding.Height,
		"encoding.frame_rate":        c.Encoding.FrameRate,
		"encoding.audio_sample_rate": c.Encoding.AudioSampleRate,
		"encoding.audio_channels":    c.Encoding.AudioChannels,
	}); err != nil {
		return err
	}
	if c.Encoding.Width%2 != 0 || c.Encoding.Height%2 != 0 {
		return errors.New("encoding.width and encoding.height must be even")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":              c.Workflow.Workers,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"media_store.request_timeout":   c.MediaStore.RequestTimeout,
		"engine.diagnostic_tail_lines":  c.Engine.DiagnosticTailLines,
		"engine.diagnostic_max_chars":   c.Engine.DiagnosticMaxChars,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.DurationToleranceMs < 0 {
		return errors.New("workflow.duration_tolerance_ms must be zero or positive")
	}
	if c.Gateway.MaxBodyBytes <= 0 {
		return errors.New("gateway.max_body_bytes must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.WebhookURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.WebhookURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.webhook_url %q must be an absolute URL", c.Notifications.WebhookURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var problems []string
	for _, key := range keys {
		if values[key] <= 0 {
			problems = append(problems, key)
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s must be positive", strings.Join(problems, ", "))
	}
	return nil
}
