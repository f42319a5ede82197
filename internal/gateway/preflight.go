package gateway

import (
	"context"

	"reelsmith/internal/ops"
	"reelsmith/internal/pipeline"
)

// checkMedia describes every referenced media id and runs the timing checks
// that only need durations. Media whose duration the store does not report
// skips the duration-dependent checks.
func (s *Server) checkMedia(ctx context.Context, desc ops.Descriptor) error {
	if !s.cfg.Gateway.PreflightMedia || s.describer == nil {
		return nil
	}
	refs := make(pipeline.Refs)
	for _, id := range desc.MediaIDs() {
		asset, err := s.describer.Describe(ctx, id)
		if err != nil {
			return err
		}
		refs[id] = pipeline.MediaReference{MediaID: id, DurationMs: asset.DurationMs}
	}
	return pipeline.CheckTiming(desc, refs, pipeline.DefaultsFromConfig(s.cfg.Encoding))
}
