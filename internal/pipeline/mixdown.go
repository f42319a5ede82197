package pipeline

import (
	"fmt"
	"strings"

	"reelsmith/internal/ops"
)

func planMixdown(req Request) (Plan, error) {
	p := req.Descriptor.Mixdown
	d := req.Defaults

	type source struct {
		input  int
		stream int
		volume float64
		ref    MediaReference
	}
	var audio []source
	video := -1
	inputs := make([]string, 0, len(p.Inputs)*2)
	for i, in := range p.Inputs {
		ref := req.Refs[in.MediaID]
		inputs = append(inputs, "-i", ref.LocalPath)
		if video < 0 && ref.HasVideo {
			video = i
		}
		stream := 0
		if in.AudioStream != nil {
			stream = *in.AudioStream
			if !ref.HasAudio {
				return Plan{}, invalidf(ops.Mixdown, "input %d (%s) has no audio stream", i, in.MediaID)
			}
			if ref.AudioStreams > 0 && stream >= ref.AudioStreams {
				return Plan{}, invalidf(ops.Mixdown, "input %d: audio stream %d does not exist (%d available)", i, stream, ref.AudioStreams)
			}
		}
		if !ref.HasAudio {
			continue
		}
		if p.Rule == ops.MixSelect && p.SelectIndex != i {
			continue
		}
		volume := 1.0
		if in.Volume != nil {
			volume = *in.Volume
		}
		audio = append(audio, source{input: i, stream: stream, volume: volume, ref: ref})
	}
	if p.Rule == ops.MixSelect && len(audio) == 0 {
		return Plan{}, invalidf(ops.Mixdown, "selected input %d has no audio stream", p.SelectIndex)
	}
	if len(audio) == 0 {
		return Plan{}, invalidf(ops.Mixdown, "at least one input must carry audio")
	}

	chains := make([]string, 0, len(audio)+2)
	labels := make([]string, 0, len(audio))
	var expected int64
	for _, src := range audio {
		pad := fmt.Sprintf("[a%d]", src.input)
		chains = append(chains, fmt.Sprintf("[%d:a:%d]volume=%s,aresample=%d%s",
			src.input, src.stream, formatFloat(src.volume), d.AudioSampleRate, pad))
		labels = append(labels, pad)
		expected = max(expected, src.ref.DurationMs)
	}
	if len(labels) == 1 {
		chains = append(chains, labels[0]+"anull[aout]")
	} else {
		chains = append(chains, fmt.Sprintf("%samix=inputs=%d:duration=longest:dropout_transition=0[aout]",
			strings.Join(labels, ""), len(labels)))
	}
	if video >= 0 {
		chains = append(chains, fmt.Sprintf("[%d:v:0]%s[outv]", video, scaleFilter(req.target, d.FrameRate)))
		expected = max(expected, req.Refs[p.Inputs[video].MediaID].DurationMs)
	}

	out := outputPath(req.WorkDir, "output", req.target.Format)
	args := append(inputs, "-filter_complex", strings.Join(chains, ";"))
	if video >= 0 {
		args = append(args, "-map", "[outv]")
		args = append(args, d.videoArgs()...)
	} else {
		args = append(args, "-vn")
	}
	args = append(args, "-map", "[aout]")
	args = append(args, d.audioArgs()...)
	args = append(args, containerArgs(req.target.Format)...)

	return Plan{
		Steps:              []Step{newStep("mixdown", weightEncode, out, args...)},
		Output:             out,
		ExpectedDurationMs: expected,
	}, nil
}
