package mediastore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// Metadata is attached to every stored output.
type Metadata struct {
	JobID        string
	Operation    string
	Inputs       []string
	DurationMs   int64
	CodecSummary string
	Extra        map[string]string
}

func (m Metadata) fields() (map[string]string, error) {
	inputs, err := json.Marshal(m.Inputs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["jobId"] = m.JobID
	out["operation"] = m.Operation
	out["inputs"] = string(inputs)
	out["durationMs"] = strconv.FormatInt(m.DurationMs, 10)
	out["codecSummary"] = m.CodecSummary
	return out, nil
}

// Store uploads the file at path as a new asset and returns its id.
func (c *Client) Store(ctx context.Context, path string, meta Metadata) (string, error) {
	fields, err := meta.fields()
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "upload", "store", "encode metadata", err)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "upload", "store", "inspect output", err)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "upload", "store", "open output", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, file, filepath.Base(path), mtype.String(), fields))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.collectionURL(""), pr)
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "upload", "store", "", err)
	}
	c.decorate(req, true)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.transfer.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "upload", "store", "", err)
	}
	defer resp.Body.Close()
	if err := statusError(resp, services.ErrUpload, "store", meta.JobID); err != nil {
		return "", err
	}

	var created struct {
		Doc *struct {
			ID json.RawMessage `json:"id"`
		} `json:"doc"`
		ID json.RawMessage `json:"id"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&created); err != nil {
		return "", services.Wrap(services.ErrUpload, "upload", "store", "decode response", err)
	}
	id := rawID(created.ID)
	if created.Doc != nil {
		if docID := rawID(created.Doc.ID); docID != "" {
			id = docID
		}
	}
	if id == "" {
		return "", services.Wrap(services.ErrUpload, "upload", "store", "response has no id", nil)
	}

	c.logger.Debug("media stored",
		logging.String("media_id", id),
		logging.String("mime_type", mtype.String()),
	)
	return id, nil
}

func writeForm(form *multipart.Writer, file io.Reader, filename, contentType string, fields map[string]string) error {
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		if err := form.WriteField(key, fields[key]); err != nil {
			return err
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return form.Close()
}
