package preflight

import (
	"context"
	"net/http"

	"reelsmith/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// MinWorkspaceFreeBytes is the free space below which the workspace check fails.
const MinWorkspaceFreeBytes = 2 << 30

// RunAll executes all preflight checks for the given config. A nil client
// falls back to http.DefaultClient.
func RunAll(ctx context.Context, cfg *config.Config, client *http.Client) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, MinWorkspaceFreeBytes),
		CheckMediaStore(ctx, client, cfg.MediaStore.BaseURL, cfg.MediaStore.APIToken),
	}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
