package pipeline

import (
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/ops"
)

// MediaReference is a downloaded input resolved to a local file. LocalPath is
// only valid while the owning workspace is open.
type MediaReference struct {
	MediaID      string
	LocalPath    string
	DurationMs   int64
	CodecSummary string
	Width        int
	Height       int
	HasVideo     bool
	HasAudio     bool
	AudioStreams int
}

// Refs indexes resolved inputs by media id.
type Refs map[string]MediaReference

// Step is one engine invocation. Files holds auxiliary inputs, keyed by name
// relative to the workspace, that must exist before the step runs.
type Step struct {
	Name   string
	Label  string
	Args   []string
	Output string
	Files  map[string]string
	Weight int
}

// Plan is the ordered step list for one job.
type Plan struct {
	Operation          ops.Operation
	Steps              []Step
	Output             string
	ExpectedDurationMs int64
}

// Defaults are the deterministic encoding settings applied to every plan.
type Defaults struct {
	Format          string
	VideoCodec      string
	CRF             int
	Preset          string
	Width           int
	Height          int
	FrameRate       int
	AudioCodec      string
	AudioBitrate    string
	AudioSampleRate int
	AudioChannels   int
}

// DefaultsFromConfig converts the encoding section into plan defaults.
func DefaultsFromConfig(enc config.Encoding) Defaults {
	return Defaults{
		Format:          enc.OutputFormat,
		VideoCodec:      enc.VideoCodec,
		CRF:             enc.CRF,
		Preset:          enc.Preset,
		Width:           enc.Width,
		Height:          enc.Height,
		FrameRate:       enc.FrameRate,
		AudioCodec:      enc.AudioCodec,
		AudioBitrate:    enc.AudioBitrate,
		AudioSampleRate: enc.AudioSampleRate,
		AudioChannels:   enc.AudioChannels,
	}
}

// target is the output shape after descriptor overrides.
type target struct {
	Format string
	Width  int
	Height int
}

func (d Defaults) target(desc ops.Descriptor) target {
	t := target{Format: d.Format, Width: d.Width, Height: d.Height}
	if f := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(desc.OutputFormat)), "."); f != "" {
		t.Format = f
	}
	if t.Format == "" {
		t.Format = "mp4"
	}
	if r := desc.Resolution; r != nil && r.Width > 0 && r.Height > 0 {
		t.Width, t.Height = r.Width, r.Height
	}
	return t
}
