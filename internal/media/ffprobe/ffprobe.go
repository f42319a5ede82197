package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	var stderr bytes.Buffer
	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", path)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int { return r.countType("video") }

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int { return r.countType("audio") }

func (r Result) countType(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

func (r Result) firstOfType(kind string) (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			return stream, true
		}
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration in seconds, falling back to
// the longest stream duration, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); d > 0 {
		return d
	}
	longest := 0.0
	for _, stream := range r.Streams {
		if d := parseFloat(stream.Duration); d > longest {
			longest = d
		}
	}
	return longest
}

// Summary is the condensed description recorded for inputs and outputs.
type Summary struct {
	DurationMs    int64  `json:"durationMs"`
	VideoCodec    string `json:"videoCodec,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	AudioCodec    string `json:"audioCodec,omitempty"`
	AudioChannels int    `json:"audioChannels,omitempty"`
	AudioStreams  int    `json:"audioStreams,omitempty"`
	HasVideo      bool   `json:"hasVideo"`
	HasAudio      bool   `json:"hasAudio"`
}

// Summarize extracts the summary from a probe result.
func (r Result) Summarize() Summary {
	var s Summary
	if d := r.DurationSeconds(); d > 0 && !math.IsNaN(d) {
		s.DurationMs = int64(math.Round(d * 1000))
	}
	if video, ok := r.firstOfType("video"); ok {
		s.HasVideo = true
		s.VideoCodec = video.CodecName
		s.Width = video.Width
		s.Height = video.Height
	}
	if audio, ok := r.firstOfType("audio"); ok {
		s.HasAudio = true
		s.AudioCodec = audio.CodecName
		s.AudioChannels = audio.Channels
		s.AudioStreams = r.AudioStreamCount()
	}
	return s
}

// CodecSummary renders "video/audio" codec names, e.g. "h264/aac".
func (s Summary) CodecSummary() string {
	parts := make([]string, 0, 2)
	if s.VideoCodec != "" {
		parts = append(parts, s.VideoCodec)
	}
	if s.AudioCodec != "" {
		parts = append(parts, s.AudioCodec)
	}
	return strings.Join(parts, "/")
}

// Probe inspects path and returns its summary.
func Probe(ctx context.Context, binary, path string) (Summary, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return Summary{}, err
	}
	return result.Summarize(), nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}
