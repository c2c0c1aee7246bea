package guard

import (
	"regexp"
	"strings"
)

// Redactor masks high-signal secret shapes before text reaches the audit
// trail. Review task payloads are sent to the service as-is; only what we
// persist locally is scrubbed.
type Redactor struct {
	patterns []namedRe
}

type namedRe struct {
	name string
	re   *regexp.Regexp
}

func NewRedactor() *Redactor {
	return &Redactor{patterns: []namedRe{
		{"private_key_block", regexp.MustCompile(`(?s)-----BEGIN [A-Z0-9 ]*PRIVATE KEY-----.*?-----END [A-Z0-9 ]*PRIVATE KEY-----`)},
		{"jwt_like", regexp.MustCompile(`(?m)\b[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`)},
		{"bearer_line", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._-]{10,}\b`)},
	}}
}

// RedactString masks every match and reports whether anything changed.
func (r *Redactor) RedactString(s string) (string, bool) {
	if r == nil || strings.TrimSpace(s) == "" {
		return s, false
	}
	out := s
	for _, p := range r.patterns {
		out = p.re.ReplaceAllString(out, "[REDACTED:"+p.name+"]")
	}
	return out, out != s
}
