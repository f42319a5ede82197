// Package ffprobe wraps the ffprobe CLI and condenses its JSON output into the
// small media summary the pipeline needs: duration, codecs, frame size and
// which stream kinds are present.
package ffprobe
