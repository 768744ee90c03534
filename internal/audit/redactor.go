package audit

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// defaultPatterns match common secret formats: bearer headers, known API
// key prefixes, and key=value / "key":"value" pairs with secret-like keys.
var defaultPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`),
	regexp.MustCompile(`\b(sk|pk|ghp|gho|xoxb|xoxp)-[A-Za-z0-9\-_]{10,}\b`),
	regexp.MustCompile(`(?i)("?(?:secret|token|password|api_key|client_secret|credential)"?\s*[:=]\s*)"[^"]+"`),
	regexp.MustCompile(`(?i)\b(secret|token|password|api_key|client_secret)=\S+`),
}

// Redactor replaces secret values in strings with RedactPlaceholder before
// they reach the audit sink or logs. Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with the default patterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: defaultPatterns}
}

// AddLiteral registers a literal secret value (e.g. a credential loaded from
// config) to be redacted on sight. Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces every known secret pattern and literal in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllStringFunc(s, func(string) string { return RedactPlaceholder })
	}
	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	return s
}

// RedactJSON redacts a JSON payload. Pattern replacement can break JSON
// syntax; when it does, the redacted text is re-encoded as a JSON string so
// downstream encoders never see an invalid RawMessage.
func (r *Redactor) RedactJSON(raw json.RawMessage) json.RawMessage {
	if r == nil || len(raw) == 0 {
		return raw
	}
	out := r.Redact(string(raw))
	if json.Valid([]byte(out)) {
		return json.RawMessage(out)
	}
	quoted, err := json.Marshal(out)
	if err != nil {
		return json.RawMessage(`"` + RedactPlaceholder + `"`)
	}
	return quoted
}

// RedactRecord applies redaction to a record's argument payload and detail.
// A nil redactor passes the record through unchanged.
func (r *Redactor) RedactRecord(rec Record) Record {
	if r == nil {
		return rec
	}
	rec.Arguments = r.RedactJSON(rec.Arguments)
	rec.Detail = r.Redact(rec.Detail)
	return rec
}
