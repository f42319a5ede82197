package ops

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Resolution overrides the target frame size.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ParseResolution accepts "1920x1080".
func ParseResolution(value string) (*Resolution, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(value)), "x")
	if !ok {
		return nil, fmt.Errorf("resolution %q must look like 1280x720", value)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return nil, fmt.Errorf("resolution %q: %w", value, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return nil, fmt.Errorf("resolution %q: %w", value, err)
	}
	return &Resolution{Width: width, Height: height}, nil
}

func (r *Resolution) String() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ConcatInput is one segment of a concatenation with an optional trim window.
type ConcatInput struct {
	MediaID string `json:"mediaId"`
	StartMs *int64 `json:"startMs,omitempty"`
	EndMs   *int64 `json:"endMs,omitempty"`
}

type ConcatParams struct {
	Inputs     []ConcatInput `json:"inputs"`
	AudioTrack string        `json:"audioTrack,omitempty"`
}

type TrimParams struct {
	Input   string `json:"input"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
}

// OverlayKind distinguishes image and text overlays.
type OverlayKind string

const (
	OverlayImage OverlayKind = "image"
	OverlayText  OverlayKind = "text"
)

// OverlaySpec places one image or text element over the base clip.
type OverlaySpec struct {
	Kind      OverlayKind `json:"kind"`
	MediaID   string      `json:"mediaId,omitempty"`
	Text      string      `json:"text,omitempty"`
	FontSize  int         `json:"fontSize,omitempty"`
	FontColor string      `json:"fontColor,omitempty"`
	X         int         `json:"x"`
	Y         int         `json:"y"`
	Opacity   *float64    `json:"opacity,omitempty"`
	Scale     *float64    `json:"scale,omitempty"`
	StartMs   *int64      `json:"startMs,omitempty"`
	EndMs     *int64      `json:"endMs,omitempty"`
}

// OpacityOrDefault returns the configured opacity, 1 when unset.
func (o OverlaySpec) OpacityOrDefault() float64 {
	if o.Opacity == nil {
		return 1
	}
	return *o.Opacity
}

type OverlayParams struct {
	Input    string        `json:"input"`
	Overlays []OverlaySpec `json:"overlays"`
}

// MixRule selects how mixdown combines audio.
type MixRule string

const (
	MixAll    MixRule = "mix"
	MixSelect MixRule = "select"
)

// MixInput is one audio source for a mixdown.
type MixInput struct {
	MediaID     string   `json:"mediaId"`
	AudioStream *int     `json:"audioStream,omitempty"`
	Volume      *float64 `json:"volume,omitempty"`
}

type MixdownParams struct {
	Inputs      []MixInput `json:"inputs"`
	Rule        MixRule    `json:"rule,omitempty"`
	SelectIndex int        `json:"selectIndex,omitempty"`
}

// Descriptor is the type-tagged request for one job. Exactly one of the
// operation parameter blocks is set, matching Operation.
type Descriptor struct {
	Operation    Operation         `json:"operation"`
	Concat       *ConcatParams     `json:"concat,omitempty"`
	Trim         *TrimParams       `json:"trim,omitempty"`
	Overlay      *OverlayParams    `json:"overlay,omitempty"`
	Mixdown      *MixdownParams    `json:"mixdown,omitempty"`
	OutputFormat string            `json:"outputFormat,omitempty"`
	Resolution   *Resolution       `json:"resolution,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// MediaIDs lists every media store identifier the descriptor references, in
// request order and without duplicates.
func (d Descriptor) MediaIDs() []string {
	var ids []string
	add := func(id string) {
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	switch {
	case d.Concat != nil:
		for _, in := range d.Concat.Inputs {
			add(in.MediaID)
		}
		add(d.Concat.AudioTrack)
	case d.Trim != nil:
		add(d.Trim.Input)
	case d.Overlay != nil:
		add(d.Overlay.Input)
		for _, ov := range d.Overlay.Overlays {
			if ov.Kind == OverlayImage {
				add(ov.MediaID)
			}
		}
	case d.Mixdown != nil:
		for _, in := range d.Mixdown.Inputs {
			add(in.MediaID)
		}
	}
	return ids
}

// Encode serializes the descriptor as the task payload.
func (d Descriptor) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// Decode parses a task payload.
func Decode(payload []byte) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(payload, &d); err != nil {
		return Descriptor{}, fmt.Errorf("decode descriptor: %w", err)
	}
	return d, nil
}
