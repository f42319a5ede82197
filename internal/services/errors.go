package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrMediaFetch    = errors.New("media fetch error")
	ErrProcessing    = errors.New("processing error")
	ErrUpload        = errors.New("upload error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrInternal      = errors.New("internal error")
)

// Kind labels persisted alongside failed jobs.
const (
	KindValidation    = "validation"
	KindMediaFetch    = "media_fetch"
	KindProcessing    = "processing"
	KindUpload        = "upload"
	KindConfiguration = "configuration"
	KindInternal      = "internal"
)

// Fault identifies which party a failure is attributed to.
type Fault string

const (
	FaultClient   Fault = "client"
	FaultUpstream Fault = "upstream"
	FaultServer   Fault = "server"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrInternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the label stored with a failed job.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrMediaFetch):
		return KindMediaFetch
	case errors.Is(err, ErrProcessing):
		return KindProcessing
	case errors.Is(err, ErrUpload):
		return KindUpload
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindInternal
	}
}

// FaultOf attributes an error. Validation failures and references to media
// that does not exist are the caller's fault; other media store failures are
// upstream faults; everything else is ours.
func FaultOf(err error) Fault {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return FaultClient
	case errors.Is(err, ErrMediaFetch) && errors.Is(err, ErrNotFound):
		return FaultClient
	case errors.Is(err, ErrMediaFetch), errors.Is(err, ErrUpload):
		return FaultUpstream
	default:
		return FaultServer
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
