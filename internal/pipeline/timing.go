package pipeline

import "reelsmith/internal/ops"

// CheckTiming runs the duration and placement checks that only need input
// durations. References with an unknown duration (zero) skip the bounds that
// depend on it.
func CheckTiming(desc ops.Descriptor, refs Refs, defaults Defaults) error {
	if err := ops.Validate(desc); err != nil {
		return err
	}
	t := defaults.target(desc)
	switch desc.Operation {
	case ops.Trim:
		return checkTrimWindow(desc.Trim, refs[desc.Trim.Input])
	case ops.Concat:
		_, err := concatSegments(desc.Concat, refs)
		return err
	case ops.Overlay:
		_, err := overlayWindows(desc.Overlay, refs[desc.Overlay.Input], t)
		return err
	}
	return nil
}

func checkTrimWindow(p *ops.TrimParams, ref MediaReference) error {
	if p.StartMs < 0 || p.EndMs <= p.StartMs {
		return invalidf(ops.Trim, "window %d-%dms must satisfy 0 <= start < end", p.StartMs, p.EndMs)
	}
	if ref.DurationMs > 0 && p.EndMs > ref.DurationMs {
		return invalidf(ops.Trim, "end %dms is past the input duration %dms", p.EndMs, ref.DurationMs)
	}
	return nil
}

type segment struct {
	ref     MediaReference
	startMs int64
	endMs   int64
}

func (s segment) durationMs() int64 {
	if s.endMs <= 0 {
		return 0
	}
	return s.endMs - s.startMs
}

func concatSegments(p *ops.ConcatParams, refs Refs) ([]segment, error) {
	segments := make([]segment, 0, len(p.Inputs))
	for i, in := range p.Inputs {
		ref := refs[in.MediaID]
		seg := segment{ref: ref, endMs: ref.DurationMs}
		if in.StartMs != nil {
			seg.startMs = *in.StartMs
		}
		if in.EndMs != nil {
			seg.endMs = *in.EndMs
		}
		if seg.startMs < 0 {
			return nil, invalidf(ops.Concat, "input %d: start must not be negative", i)
		}
		if seg.endMs > 0 && seg.endMs <= seg.startMs {
			return nil, invalidf(ops.Concat, "input %d: window %d-%dms is empty", i, seg.startMs, seg.endMs)
		}
		if ref.DurationMs > 0 {
			if seg.startMs >= ref.DurationMs {
				return nil, invalidf(ops.Concat, "input %d: start %dms is past the input duration %dms", i, seg.startMs, ref.DurationMs)
			}
			if seg.endMs > ref.DurationMs {
				return nil, invalidf(ops.Concat, "input %d: end %dms is past the input duration %dms", i, seg.endMs, ref.DurationMs)
			}
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

type window struct {
	spec    ops.OverlaySpec
	startMs int64
	endMs   int64
}

func overlayWindows(p *ops.OverlayParams, base MediaReference, t target) ([]window, error) {
	windows := make([]window, 0, len(p.Overlays))
	for i, ov := range p.Overlays {
		w := window{spec: ov, endMs: base.DurationMs}
		if ov.StartMs != nil {
			w.startMs = *ov.StartMs
		}
		if ov.EndMs != nil {
			w.endMs = *ov.EndMs
		}
		if w.startMs < 0 {
			return nil, invalidf(ops.Overlay, "overlay %d: start must not be negative", i)
		}
		if w.endMs > 0 && w.endMs <= w.startMs {
			return nil, invalidf(ops.Overlay, "overlay %d: window %d-%dms is empty", i, w.startMs, w.endMs)
		}
		if base.DurationMs > 0 {
			if w.startMs >= base.DurationMs {
				return nil, invalidf(ops.Overlay, "overlay %d: starts at %dms after the base clip ends (%dms)", i, w.startMs, base.DurationMs)
			}
			if w.endMs > base.DurationMs {
				return nil, invalidf(ops.Overlay, "overlay %d: ends at %dms after the base clip ends (%dms)", i, w.endMs, base.DurationMs)
			}
		}
		if ov.X < 0 || ov.X >= t.Width || ov.Y < 0 || ov.Y >= t.Height {
			return nil, invalidf(ops.Overlay, "overlay %d: position (%d,%d) is outside the %dx%d frame", i, ov.X, ov.Y, t.Width, t.Height)
		}
		if op := ov.OpacityOrDefault(); op < 0 || op > 1 {
			return nil, invalidf(ops.Overlay, "overlay %d: opacity must be between 0 and 1", i)
		}
		windows = append(windows, w)
	}
	return windows, nil
}
