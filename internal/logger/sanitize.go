package logger

import "strings"

// sensitiveMarkers flags substrings of keys or message fragments whose
// values must never reach a log line or an outbound notification.
var sensitiveMarkers = []string{
	"password", "token", "secret", "api_key", "apikey", "api-key",
	"authorization", "client_secret", "access_token", "refresh_token",
	"bearer", "senha", "credencial",
}

// RedactSecrets replaces the values of sensitive keys in a flat map with a
// redaction marker. The input map is not modified.
func RedactSecrets(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if isSensitiveKey(k) {
			out[k] = "***REDACTED***"
		} else {
			out[k] = v
		}
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// SanitizeError prepares an error message for an outbound notification:
// only the first line survives (no stack traces), sensitive key=value
// pairs are redacted, and the result is capped at maxLen runes.
func SanitizeError(msg string, maxLen int) string {
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}

	fields := strings.Fields(msg)
	for i, f := range fields {
		if key, _, ok := strings.Cut(f, "="); ok && isSensitiveKey(key) {
			fields[i] = key + "=***REDACTED***"
		}
	}
	msg = strings.Join(fields, " ")

	runes := []rune(msg)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return msg
}
