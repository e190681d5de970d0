package core

import "strings"

const RedactedValue = "[REDACTED]"

// sensitiveKeyParts mark log field keys whose values never reach a log line.
var sensitiveKeyParts = []string{
	"access_token",
	"token",
	"secret",
	"hmac",
	"authorization",
	"api_key",
	"cookie",
	"password",
}

// RedactFields returns a copy of fields with credential-bearing values
// replaced by RedactedValue. Nested maps and slices are walked.
func RedactFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if IsSensitiveField(key) {
			out[key] = RedactedValue
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func redactValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return RedactFields(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = redactValue(item)
		}
		return out
	default:
		return value
	}
}

// IsSensitiveField reports whether a field key names a credential. Session
// and webhook identifiers stay visible.
func IsSensitiveField(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	switch key {
	case "", "session_id", "webhook_id", "text_code", "shop", "topic":
		return false
	}
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}
