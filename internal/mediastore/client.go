package mediastore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/ops"
	"reelsmith/internal/services"
)

const (
	userAgent      = "reelsmith/0.1.0"
	defaultTimeout = 30 * time.Second
	maxErrorDetail = 512
)

// Asset is the media store's description of one item.
type Asset struct {
	ID          string
	Filename    string
	MimeType    string
	DownloadURL string
	DurationMs  int64
}

// Client is a media store client.
type Client struct {
	base       *url.URL
	collection string
	token      string
	api        *http.Client
	transfer   *http.Client
	logger     *slog.Logger
}

// New builds a client from the media store section. Metadata requests use
// the configured timeout end to end; transfers only bound the wait for
// response headers so large files are not cut off.
func New(cfg config.MediaStore, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "media_store", "init", fmt.Sprintf("invalid base url %q", cfg.BaseURL), err)
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	collection := strings.Trim(strings.TrimSpace(cfg.Collection), "/")
	if collection == "" {
		collection = "media"
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &Client{
		base:       base,
		collection: collection,
		token:      strings.TrimSpace(cfg.APIToken),
		api:        &http.Client{Timeout: timeout},
		transfer:   &http.Client{Transport: transport},
		logger:     logging.NewComponentLogger(logger, "media_store"),
	}, nil
}

// Describe looks up an asset by id.
func (c *Client) Describe(ctx context.Context, id string) (Asset, error) {
	if err := ops.ValidateMediaID(id); err != nil {
		return Asset{}, err
	}
	endpoint := c.collectionURL(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Asset{}, services.Wrap(services.ErrMediaFetch, "download", "describe", id, err)
	}
	c.decorate(req, true)
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return Asset{}, services.Wrap(services.ErrMediaFetch, "download", "describe", id, err)
	}
	defer resp.Body.Close()
	if err := statusError(resp, services.ErrMediaFetch, "describe", id); err != nil {
		return Asset{}, err
	}

	var doc assetDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return Asset{}, services.Wrap(services.ErrMediaFetch, "download", "describe", id+": decode response", err)
	}
	asset := doc.asset(id)
	if asset.DownloadURL == "" {
		return Asset{}, services.Wrap(services.ErrMediaFetch, "download", "describe", id+": response has no download url", nil)
	}
	return asset, nil
}

func (c *Client) collectionURL(id string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + c.collection
	if id != "" {
		u.Path += "/" + url.PathEscape(id)
	}
	return u.String()
}

// resolve turns a possibly relative download URL into an absolute one.
func (c *Client) resolve(raw string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	return c.base.ResolveReference(ref), nil
}

// decorate sets common headers. The bearer token is only sent to the store's
// own host.
func (c *Client) decorate(req *http.Request, sameHost bool) {
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" && sameHost {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func statusError(resp *http.Response, marker error, operation, id string) error {
	if resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorDetail))
	stage := "download"
	if marker == services.ErrUpload {
		stage = "upload"
	}
	msg := fmt.Sprintf("%s: media store returned %d", id, resp.StatusCode)
	if text := strings.TrimSpace(string(detail)); text != "" {
		msg += ": " + text
	}
	var cause error
	if resp.StatusCode == http.StatusNotFound {
		cause = services.ErrNotFound
	}
	return services.Wrap(marker, stage, operation, msg, cause)
}

type assetDocument struct {
	ID                json.RawMessage `json:"id"`
	Filename          string          `json:"filename"`
	OriginalFilename  string          `json:"originalFilename"`
	MimeType          string          `json:"mimeType"`
	MimeTypeLower     string          `json:"mimetype"`
	DirectDownloadURL string          `json:"directDownloadUrl"`
	URL               string          `json:"url"`
	DurationMs        *float64        `json:"durationMs"`
	Duration          *float64        `json:"duration"`
}

func (d assetDocument) asset(id string) Asset {
	a := Asset{
		ID:          id,
		Filename:    firstNonEmpty(d.Filename, d.OriginalFilename, id),
		MimeType:    firstNonEmpty(d.MimeType, d.MimeTypeLower, "application/octet-stream"),
		DownloadURL: firstNonEmpty(d.DirectDownloadURL, d.URL),
	}
	switch {
	case d.DurationMs != nil && *d.DurationMs > 0:
		a.DurationMs = int64(*d.DurationMs)
	case d.Duration != nil && *d.Duration > 0:
		a.DurationMs = int64(*d.Duration * 1000)
	}
	return a
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// rawID renders a JSON id that may be a string or a number.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strconv.Quote(string(raw))
}
