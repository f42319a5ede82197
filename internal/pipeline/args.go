package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	weightEncode = 10
	weightCopy   = 1
	weightRemux  = 2
)

var titleCaser = cases.Title(language.English)

func label(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

func newStep(name string, weight int, output string, args ...string) Step {
	return Step{
		Name:   name,
		Label:  label(name),
		Args:   append(append([]string(nil), args...), output),
		Output: output,
		Weight: weight,
	}
}

// seconds renders milliseconds as engine seconds with three decimals.
func seconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}

func itoa(v int) string { return strconv.Itoa(v) }

func scaleFilter(t target, fps int) string {
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		t.Width, t.Height, t.Width, t.Height)
	if fps > 0 {
		filter += ",fps=" + itoa(fps)
	}
	return filter
}

func (d Defaults) videoArgs() []string {
	return []string{"-c:v", d.VideoCodec, "-crf", itoa(d.CRF), "-preset", d.Preset, "-pix_fmt", "yuv420p"}
}

func (d Defaults) audioArgs() []string {
	return []string{"-c:a", d.AudioCodec, "-b:a", d.AudioBitrate, "-ar", itoa(d.AudioSampleRate), "-ac", itoa(d.AudioChannels)}
}

func containerArgs(format string) []string {
	switch format {
	case "mp4", "mov":
		return []string{"-movflags", "+faststart"}
	}
	return nil
}

func outputPath(workDir, name, format string) string {
	return filepath.Join(workDir, name+"."+format)
}

// concatList renders a concat demuxer list.
func concatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

var drawtextEscaper = strings.NewReplacer(`\`, `\\`, `'`, `'\''`, `%`, `\%`)

func escapeDrawtext(text string) string {
	return drawtextEscaper.Replace(text)
}

// enableExpr limits a filter to [start,end]; an open end leaves it on until EOF.
func enableExpr(startMs, endMs int64) string {
	switch {
	case startMs <= 0 && endMs <= 0:
		return ""
	case endMs <= 0:
		return fmt.Sprintf(":enable='gte(t,%s)'", seconds(startMs))
	default:
		return fmt.Sprintf(":enable='gte(t,%s)*lte(t,%s)'", seconds(startMs), seconds(endMs))
	}
}
