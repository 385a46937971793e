package logging

import (
	"log/slog"
	"regexp"
)

// Redactor masks provider credentials in log attribute values. Forwarded
// requests carry real API keys, and upstream error strings sometimes echo
// them back; the redactor is the last line of defense before the log sink.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor returns a redactor covering the credential shapes the
// supported providers use.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*redactPattern{
			// Anthropic API keys. Checked before the generic sk- form
			// so the provider marker survives redaction.
			{regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{8,}`), "sk-ant-***"},
			// OpenAI-style secret keys.
			{regexp.MustCompile(`sk-[a-zA-Z0-9_-]{8,}`), "sk-***"},
			// Bearer tokens in echoed headers.
			{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._~+/-]{8,}`), "Bearer ***"},
		},
	}
}

// Redact masks every credential occurrence in s.
func (r *Redactor) Redact(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// ReplaceAttr is a slog.HandlerOptions hook that redacts string values.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		a.Value = slog.StringValue(r.Redact(a.Value.String()))
	}
	return a
}
