package mediastore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/textutil"
)

// Fetch describes the asset and streams its content into dir. The returned
// path is inside dir and named after the media id and the asset filename.
func (c *Client) Fetch(ctx context.Context, id, dir string) (string, error) {
	asset, err := c.Describe(ctx, id)
	if err != nil {
		return "", err
	}
	return c.Download(ctx, asset, dir)
}

// Download streams a described asset into dir.
func (c *Client) Download(ctx context.Context, asset Asset, dir string) (string, error) {
	target, err := c.resolve(asset.DownloadURL)
	if err != nil {
		return "", services.Wrap(services.ErrMediaFetch, "download", "fetch", asset.ID+": invalid download url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", services.Wrap(services.ErrMediaFetch, "download", "fetch", asset.ID, err)
	}
	c.decorate(req, target.Host == c.base.Host)

	resp, err := c.transfer.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrMediaFetch, "download", "fetch", asset.ID, err)
	}
	defer resp.Body.Close()
	if err := statusError(resp, services.ErrMediaFetch, "fetch", asset.ID); err != nil {
		return "", err
	}

	name := textutil.SanitizeFileName(asset.Filename)
	if name == "" {
		name = "media"
	}
	path := filepath.Join(dir, fmt.Sprintf("input_%s_%s", textutil.SanitizeToken(asset.ID), name))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", services.Wrap(services.ErrMediaFetch, "download", "fetch", asset.ID+": create file", err)
	}
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(path)
		return "", services.Wrap(services.ErrMediaFetch, "download", "fetch", asset.ID+": read body", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return "", services.Wrap(services.ErrMediaFetch, "download", "fetch", asset.ID+": write file", closeErr)
	}
	if written == 0 {
		_ = os.Remove(path)
		return "", services.Wrap(services.ErrMediaFetch, "download", "fetch", asset.ID+": empty download", nil)
	}

	c.logger.Debug("media downloaded",
		logging.String("media_id", asset.ID),
		logging.Int64("bytes", written),
		logging.String("mime_type", asset.MimeType),
	)
	return path, nil
}
