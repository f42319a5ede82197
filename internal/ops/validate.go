package ops

import (
	"fmt"
	"strings"

	"reelsmith/internal/services"
)

var outputFormats = map[string]struct{}{"mp4": {}, "mov": {}, "mkv": {}}

const maxFrameDimension = 7680

// Validate checks the structural rules that do not depend on media durations.
func Validate(d Descriptor) error {
	if !d.Operation.Valid() {
		return invalid(d.Operation, "unknown operation %q", d.Operation)
	}
	if n := d.paramBlocks(); n != 1 {
		return invalid(d.Operation, "expected exactly one parameter block, got %d", n)
	}
	if d.OutputFormat != "" {
		if _, ok := outputFormats[strings.ToLower(d.OutputFormat)]; !ok {
			return invalid(d.Operation, "output format %q is not supported", d.OutputFormat)
		}
	}
	if r := d.Resolution; r != nil {
		if r.Width <= 0 || r.Height <= 0 || r.Width > maxFrameDimension || r.Height > maxFrameDimension {
			return invalid(d.Operation, "resolution %s is out of range", r)
		}
		if r.Width%2 != 0 || r.Height%2 != 0 {
			return invalid(d.Operation, "resolution %s must use even dimensions", r)
		}
	}
	for _, id := range d.MediaIDs() {
		if err := ValidateMediaID(id); err != nil {
			return err
		}
	}

	switch d.Operation {
	case Concat:
		return validateConcat(d.Concat)
	case Trim:
		return validateTrim(d.Trim)
	case Overlay:
		return validateOverlay(d.Overlay)
	case Mixdown:
		return validateMixdown(d.Mixdown)
	}
	return nil
}

func (d Descriptor) paramBlocks() int {
	n := 0
	if d.Concat != nil {
		n++
	}
	if d.Trim != nil {
		n++
	}
	if d.Overlay != nil {
		n++
	}
	if d.Mixdown != nil {
		n++
	}
	if n == 1 {
		switch {
		case d.Operation == Concat && d.Concat == nil,
			d.Operation == Trim && d.Trim == nil,
			d.Operation == Overlay && d.Overlay == nil,
			d.Operation == Mixdown && d.Mixdown == nil:
			return 0
		}
	}
	return n
}

func validateConcat(p *ConcatParams) error {
	if len(p.Inputs) == 0 {
		return invalid(Concat, "at least one input is required")
	}
	for i, in := range p.Inputs {
		if err := ValidateMediaID(in.MediaID); err != nil {
			return err
		}
		if in.StartMs != nil && *in.StartMs < 0 {
			return invalid(Concat, "input %d: start must not be negative", i)
		}
		if in.StartMs != nil && in.EndMs != nil && *in.EndMs <= *in.StartMs {
			return invalid(Concat, "input %d: end must be after start", i)
		}
		if in.EndMs != nil && *in.EndMs <= 0 {
			return invalid(Concat, "input %d: end must be positive", i)
		}
	}
	return nil
}

func validateTrim(p *TrimParams) error {
	if err := ValidateMediaID(p.Input); err != nil {
		return err
	}
	if p.StartMs < 0 {
		return invalid(Trim, "start must not be negative")
	}
	if p.EndMs <= p.StartMs {
		return invalid(Trim, "end (%dms) must be after start (%dms)", p.EndMs, p.StartMs)
	}
	return nil
}

func validateOverlay(p *OverlayParams) error {
	if err := ValidateMediaID(p.Input); err != nil {
		return err
	}
	if len(p.Overlays) == 0 {
		return invalid(Overlay, "at least one overlay is required")
	}
	for i, ov := range p.Overlays {
		switch ov.Kind {
		case OverlayImage:
			if err := ValidateMediaID(ov.MediaID); err != nil {
				return err
			}
		case OverlayText:
			if strings.TrimSpace(ov.Text) == "" {
				return invalid(Overlay, "overlay %d: text is required", i)
			}
			if ov.FontSize < 0 {
				return invalid(Overlay, "overlay %d: font size must not be negative", i)
			}
		default:
			return invalid(Overlay, "overlay %d: kind must be image or text", i)
		}
		if ov.X < 0 || ov.Y < 0 {
			return invalid(Overlay, "overlay %d: position must not be negative", i)
		}
		if op := ov.OpacityOrDefault(); op < 0 || op > 1 {
			return invalid(Overlay, "overlay %d: opacity must be between 0 and 1", i)
		}
		if ov.Scale != nil && *ov.Scale <= 0 {
			return invalid(Overlay, "overlay %d: scale must be positive", i)
		}
		if ov.StartMs != nil && *ov.StartMs < 0 {
			return invalid(Overlay, "overlay %d: start must not be negative", i)
		}
		if ov.StartMs != nil && ov.EndMs != nil && *ov.EndMs <= *ov.StartMs {
			return invalid(Overlay, "overlay %d: end must be after start", i)
		}
	}
	return nil
}

func validateMixdown(p *MixdownParams) error {
	if len(p.Inputs) == 0 {
		return invalid(Mixdown, "at least one input is required")
	}
	for i, in := range p.Inputs {
		if err := ValidateMediaID(in.MediaID); err != nil {
			return err
		}
		if in.AudioStream != nil && *in.AudioStream < 0 {
			return invalid(Mixdown, "input %d: audio stream index must not be negative", i)
		}
		if in.Volume != nil && (*in.Volume < 0 || *in.Volume > 4) {
			return invalid(Mixdown, "input %d: volume must be between 0 and 4", i)
		}
	}
	switch p.Rule {
	case "", MixAll:
	case MixSelect:
		if p.SelectIndex < 0 || p.SelectIndex >= len(p.Inputs) {
			return invalid(Mixdown, "select index %d is out of range", p.SelectIndex)
		}
	default:
		return invalid(Mixdown, "rule must be mix or select")
	}
	return nil
}

func invalid(op Operation, format string, args ...any) error {
	return services.Wrap(services.ErrValidation, "", string(op), fmt.Sprintf(format, args...), nil)
}
