package logger

import (
	"log/slog"
	"strings"
)

// Attribute names containing any of these are treated as secrets.
// Plain "key" is deliberately absent: keyspace keys are logged as key=.
var sensitiveKeyPatterns = []string{
	"password",
	"requirepass",
	"passphrase",
	"secret",
	"encryption_key",
	"credential",
	"bearer",
}

const redactedValue = "***REDACTED***"

func redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// IsSensitiveKey reports whether an attribute name suggests a secret.
func IsSensitiveKey(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range sensitiveKeyPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// RedactString masks s, keeping two characters at each end of values
// long enough for that to be safe.
func RedactString(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:2] + "..." + s[len(s)-2:]
}
