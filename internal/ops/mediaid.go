package ops

import (
	"fmt"
	"regexp"
	"strings"

	"reelsmith/internal/services"
)

var mediaIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateMediaID rejects anything other than an opaque media store
// identifier. URLs, paths and traversal sequences are refused.
func ValidateMediaID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return services.Wrap(services.ErrValidation, "", "media id", "media id is required", nil)
	case strings.Contains(id, "://"), strings.ContainsAny(id, `/\`):
		return services.Wrap(services.ErrValidation, "", "media id", fmt.Sprintf("%q is not a media store identifier", id), nil)
	case strings.Contains(id, ".."), !mediaIDPattern.MatchString(id):
		return services.Wrap(services.ErrValidation, "", "media id", fmt.Sprintf("%q is not a media store identifier", id), nil)
	}
	return nil
}
