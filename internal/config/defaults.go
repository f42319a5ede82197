package config

const (
	defaultConfigPath          = "~/.config/reelsmith/config.toml"
	defaultDataDir             = "~/.local/share/reelsmith"
	defaultWorkDir             = "~/.local/share/reelsmith/work"
	defaultLogDir              = "~/.local/share/reelsmith/logs"
	defaultAPIBind             = "127.0.0.1:7650"
	defaultMediaCollection     = "media"
	defaultMediaTimeout        = 30
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultDiagnosticTailLines = 12
	defaultDiagnosticMaxChars  = 600
	defaultOutputFormat        = "mp4"
	defaultVideoCodec          = "libx264"
	defaultCRF                 = 21
	defaultPreset              = "medium"
	defaultWidth               = 1280
	defaultHeight              = 720
	defaultFrameRate           = 30
	defaultAudioCodec          = "aac"
	defaultAudioBitrate        = "192k"
	defaultAudioSampleRate     = 48000
	defaultAudioChannels       = 2
	defaultWorkers             = 2
	defaultQueuePollInterval   = 2
	defaultErrorRetryInterval  = 10
	defaultDurationToleranceMs = 500
	defaultMaxBodyBytes        = 1 << 20
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	minCRF = 20
	maxCRF = 23
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		MediaStore: MediaStore{
			Collection:     defaultMediaCollection,
			RequestTimeout: defaultMediaTimeout,
		},
		Engine: Engine{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			DiagnosticTailLines: defaultDiagnosticTailLines,
			DiagnosticMaxChars:  defaultDiagnosticMaxChars,
		},
		Encoding: Encoding{
			OutputFormat:    defaultOutputFormat,
			VideoCodec:      defaultVideoCodec,
			CRF:             defaultCRF,
			Preset:          defaultPreset,
			Width:           defaultWidth,
			Height:          defaultHeight,
			FrameRate:       defaultFrameRate,
			AudioCodec:      defaultAudioCodec,
			AudioBitrate:    defaultAudioBitrate,
			AudioSampleRate: defaultAudioSampleRate,
			AudioChannels:   defaultAudioChannels,
		},
		Workflow: Workflow{
			Workers:             defaultWorkers,
			QueuePollInterval:   defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			DurationToleranceMs: defaultDurationToleranceMs,
		},
		Gateway: Gateway{
			PreflightMedia: true,
			MaxBodyBytes:   defaultMaxBodyBytes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Progress:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
