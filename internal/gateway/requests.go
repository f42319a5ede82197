package gateway

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"reelsmith/internal/ops"
)

// options are accepted by every submission endpoint.
type options struct {
	OutputFormat string            `json:"outputFormat,omitempty"`
	Resolution   *ops.Resolution   `json:"resolution,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (o options) apply(d *ops.Descriptor) {
	d.OutputFormat = o.OutputFormat
	d.Resolution = o.Resolution
	d.Metadata = o.Metadata
}

type concatRequest struct {
	ops.ConcatParams
	options
}

type trimRequest struct {
	ops.TrimParams
	options
}

type overlayRequest struct {
	ops.OverlayParams
	options
}

type mixdownRequest struct {
	ops.MixdownParams
	options
}

// decodeRequest binds the JSON body for op into a descriptor. It only fails
// on malformed input; semantic checks happen in ops.Validate.
func decodeRequest(c *gin.Context, op ops.Operation) (ops.Descriptor, error) {
	desc := ops.Descriptor{Operation: op}
	switch op {
	case ops.Concat:
		var req concatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return desc, err
		}
		desc.Concat = &req.ConcatParams
		req.options.apply(&desc)
	case ops.Trim:
		var req trimRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return desc, err
		}
		desc.Trim = &req.TrimParams
		req.options.apply(&desc)
	case ops.Overlay:
		var req overlayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return desc, err
		}
		desc.Overlay = &req.OverlayParams
		req.options.apply(&desc)
	case ops.Mixdown:
		var req mixdownRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return desc, err
		}
		desc.Mixdown = &req.MixdownParams
		req.options.apply(&desc)
	default:
		return desc, fmt.Errorf("unsupported operation %q", op)
	}
	return desc, nil
}
