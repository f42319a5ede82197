package pipeline

import "reelsmith/internal/ops"

func planTrim(req Request) (Plan, error) {
	p := req.Descriptor.Trim
	ref := req.Refs[p.Input]
	if err := checkTrimWindow(p, ref); err != nil {
		return Plan{}, err
	}
	if !ref.HasVideo {
		return Plan{}, invalidf(ops.Trim, "input %s has no video stream", p.Input)
	}

	d := req.Defaults
	out := outputPath(req.WorkDir, "output", req.target.Format)
	duration := p.EndMs - p.StartMs

	args := []string{
		"-ss", seconds(p.StartMs),
		"-i", ref.LocalPath,
		"-t", seconds(duration),
		"-map", "0:v:0",
	}
	if ref.HasAudio {
		args = append(args, "-map", "0:a:0")
	}
	args = append(args, "-vf", scaleFilter(req.target, d.FrameRate))
	args = append(args, d.videoArgs()...)
	if ref.HasAudio {
		args = append(args, d.audioArgs()...)
	} else {
		args = append(args, "-an")
	}
	args = append(args, containerArgs(req.target.Format)...)

	return Plan{
		Steps:              []Step{newStep("trim", weightEncode, out, args...)},
		Output:             out,
		ExpectedDurationMs: duration,
	}, nil
}
