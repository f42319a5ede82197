package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	defaultDiagnosticChars = 600
	workspacePlaceholder   = "<workspace>"
	pathPlaceholder        = "<path>"
	redacted               = "<redacted>"
)

var (
	absolutePathPattern = regexp.MustCompile(`(^|[\s'"=(,])(/[^\s'",)]+)`)
	queryPattern        = regexp.MustCompile(`(https?://[^\s'"?]+)\?[^\s'"]*`)
	secretPattern       = regexp.MustCompile(`(?i)\b(authorization|bearer|token|api[_-]?key|password|secret)(\s*[:=]\s*|\s+)([^\s'",]+)`)
)

// Sanitizer turns raw engine stderr into a summary safe to persist.
type Sanitizer struct {
	Workspace string
	Secrets   []string
	MaxChars  int
}

// Summary joins the tail lines and applies redaction and the character cap.
// The most recent output is kept when truncating.
func (s Sanitizer) Summary(tail []string) string {
	text := strings.TrimSpace(strings.Join(tail, "\n"))
	if text == "" {
		return ""
	}
	return s.Redact(text)
}

// Redact masks workspace paths, absolute paths, secrets and query strings.
func (s Sanitizer) Redact(text string) string {
	for _, secret := range s.Secrets {
		if secret = strings.TrimSpace(secret); secret != "" {
			text = strings.ReplaceAll(text, secret, redacted)
		}
	}
	if ws := strings.TrimRight(s.Workspace, "/"); ws != "" {
		text = strings.ReplaceAll(text, ws, workspacePlaceholder)
	}
	text = queryPattern.ReplaceAllString(text, "$1?"+redacted)
	text = secretPattern.ReplaceAllString(text, "$1$2"+redacted)
	text = absolutePathPattern.ReplaceAllString(text, "$1"+pathPlaceholder)

	limit := s.MaxChars
	if limit <= 0 {
		limit = defaultDiagnosticChars
	}
	return truncateHead(text, limit)
}

func truncateHead(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return "…" + string(runes[len(runes)-limit+1:])
}
