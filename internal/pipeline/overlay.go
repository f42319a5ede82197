package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"reelsmith/internal/ops"
)

const (
	defaultFontSize  = 48
	defaultFontColor = "white"
)

func planOverlay(req Request) (Plan, error) {
	p := req.Descriptor.Overlay
	base := req.Refs[p.Input]
	if !base.HasVideo {
		return Plan{}, invalidf(ops.Overlay, "base input %s has no video stream", p.Input)
	}
	windows, err := overlayWindows(p, base, req.target)
	if err != nil {
		return Plan{}, err
	}

	d := req.Defaults
	inputs := []string{"-i", base.LocalPath}
	chains := []string{fmt.Sprintf("[0:v]%s[base]", scaleFilter(req.target, d.FrameRate))}
	last := "base"
	nextInput := 1

	for i, w := range windows {
		ov := w.spec
		outLabel := fmt.Sprintf("v%d", i+1)
		// Open ends run to EOF so unknown base durations still render.
		end := w.endMs
		if ov.EndMs == nil {
			end = 0
		}
		enable := enableExpr(w.startMs, end)
		opacity := formatFloat(ov.OpacityOrDefault())

		switch ov.Kind {
		case ops.OverlayImage:
			img := req.Refs[ov.MediaID]
			inputs = append(inputs, "-i", img.LocalPath)
			src := fmt.Sprintf("ov%d", i+1)
			filters := make([]string, 0, 3)
			if ov.Scale != nil {
				s := formatFloat(*ov.Scale)
				filters = append(filters, fmt.Sprintf("scale=iw*%s:ih*%s", s, s))
			}
			filters = append(filters, "format=rgba", "colorchannelmixer=aa="+opacity)
			chains = append(chains,
				fmt.Sprintf("[%d:v]%s[%s]", nextInput, strings.Join(filters, ","), src),
				fmt.Sprintf("[%s][%s]overlay=x=%d:y=%d%s[%s]", last, src, ov.X, ov.Y, enable, outLabel),
			)
			nextInput++
		case ops.OverlayText:
			size := ov.FontSize
			if size <= 0 {
				size = defaultFontSize
			}
			color := strings.TrimSpace(ov.FontColor)
			if color == "" {
				color = defaultFontColor
			}
			if ov.Opacity != nil {
				color += "@" + opacity
			}
			chains = append(chains, fmt.Sprintf("[%s]drawtext=text='%s':fontsize=%d:fontcolor=%s:x=%d:y=%d%s[%s]",
				last, escapeDrawtext(ov.Text), size, color, ov.X, ov.Y, enable, outLabel))
		}
		last = outLabel
	}
	chains = append(chains, fmt.Sprintf("[%s]setsar=1[outv]", last))

	out := outputPath(req.WorkDir, "output", req.target.Format)
	args := append(inputs,
		"-filter_complex", strings.Join(chains, ";"),
		"-map", "[outv]",
	)
	if base.HasAudio {
		args = append(args, "-map", "0:a:0")
	}
	args = append(args, d.videoArgs()...)
	if base.HasAudio {
		args = append(args, d.audioArgs()...)
	} else {
		args = append(args, "-an")
	}
	args = append(args, containerArgs(req.target.Format)...)

	return Plan{
		Steps:              []Step{newStep("overlay", weightEncode, out, args...)},
		Output:             out,
		ExpectedDurationMs: base.DurationMs,
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
