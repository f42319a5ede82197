package pipeline

import (
	"fmt"
	"path/filepath"

	"reelsmith/internal/ops"
)

const concatListName = "concat_list.txt"

func planConcat(req Request) (Plan, error) {
	p := req.Descriptor.Concat
	segments, err := concatSegments(p, req.Refs)
	if err != nil {
		return Plan{}, err
	}

	withAudio := 0
	for i, seg := range segments {
		if !seg.ref.HasVideo {
			return Plan{}, invalidf(ops.Concat, "input %d (%s) has no video stream", i, seg.ref.MediaID)
		}
		if seg.ref.HasAudio {
			withAudio++
		}
	}
	var track MediaReference
	if p.AudioTrack != "" {
		track = req.Refs[p.AudioTrack]
		if !track.HasAudio {
			return Plan{}, invalidf(ops.Concat, "audio track %s has no audio stream", p.AudioTrack)
		}
	} else if withAudio != 0 && withAudio != len(segments) {
		return Plan{}, invalidf(ops.Concat, "%d of %d inputs have audio; audio must be present on all inputs or none", withAudio, len(segments))
	}
	keepAudio := p.AudioTrack == "" && withAudio == len(segments)

	d := req.Defaults
	format := req.target.Format
	steps := make([]Step, 0, len(segments)+2)
	normalized := make([]string, 0, len(segments))
	var expected int64

	for i, seg := range segments {
		name := fmt.Sprintf("normalize_%02d", i+1)
		out := filepath.Join(req.WorkDir, fmt.Sprintf("segment_%02d.mp4", i+1))
		args := make([]string, 0, 32)
		if seg.startMs > 0 {
			args = append(args, "-ss", seconds(seg.startMs))
		}
		args = append(args, "-i", seg.ref.LocalPath)
		if seg.endMs > 0 {
			args = append(args, "-t", seconds(seg.durationMs()))
		}
		args = append(args, "-map", "0:v:0")
		if keepAudio {
			args = append(args, "-map", "0:a:0")
		}
		args = append(args, "-vf", scaleFilter(req.target, d.FrameRate))
		args = append(args, d.videoArgs()...)
		if keepAudio {
			args = append(args, d.audioArgs()...)
		} else {
			args = append(args, "-an")
		}
		steps = append(steps, newStep(name, weightEncode, out, args...))
		normalized = append(normalized, out)
		expected += seg.durationMs()
	}

	joined := outputPath(req.WorkDir, "output", format)
	if p.AudioTrack != "" {
		joined = outputPath(req.WorkDir, "concat", format)
	}
	concat := newStep("concat", weightCopy, joined, append([]string{
		"-f", "concat",
		"-safe", "0",
		"-i", filepath.Join(req.WorkDir, concatListName),
		"-c", "copy",
	}, containerArgs(format)...)...)
	concat.Files = map[string]string{concatListName: concatList(normalized)}
	steps = append(steps, concat)

	out := joined
	if p.AudioTrack != "" {
		out = outputPath(req.WorkDir, "output", format)
		args := []string{
			"-i", joined,
			"-i", track.LocalPath,
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-c:v", "copy",
		}
		args = append(args, d.audioArgs()...)
		args = append(args, "-shortest")
		args = append(args, containerArgs(format)...)
		steps = append(steps, newStep("audio_replace", weightRemux, out, args...))
		if track.DurationMs > 0 && track.DurationMs < expected {
			expected = track.DurationMs
		}
	}

	return Plan{Steps: steps, Output: out, ExpectedDurationMs: expected}, nil
}
