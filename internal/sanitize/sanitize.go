// Package sanitize masks sensitive values before they are attached to log
// events. Masking decisions are driven by the field name, not the value, so
// callers must pass the key a value is stored under.
package sanitize

import (
	"strconv"
	"strings"
)

// Redacted replaces values that must never appear in logs, even partially.
const Redacted = "[REDACTED]"

// maxMessageRunes bounds message bodies retained in log output.
const maxMessageRunes = 512

// MaskPhone hides the middle of a phone number, keeping at most the first
// three and last two characters visible. Values with four or fewer
// significant digits are fully redacted.
func MaskPhone(value string) string {
	digits := strings.Map(func(r rune) rune {
		if r == '+' || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, value)
	if len(digits) <= 4 {
		return Redacted
	}

	runes := []rune(value)
	prefixLen := min(3, len(runes))
	suffixLen := min(2, max(len(runes)-prefixLen, 0))
	prefix := string(runes[:prefixLen])
	suffix := ""
	if suffixLen > 0 {
		suffix = string(runes[len(runes)-suffixLen:])
	}
	return prefix + "***" + suffix
}

// MaskName keeps only the first and last character of a personal name.
func MaskName(value string) string {
	runes := []rune(value)
	switch len(runes) {
	case 0:
		return value
	case 1:
		return string(runes) + "***"
	default:
		return string(runes[0]) + "***" + string(runes[len(runes)-1])
	}
}

// TruncateMessage caps a message body for logging, appending an ellipsis
// when content was dropped.
func TruncateMessage(value string) string {
	runes := []rune(value)
	if len(runes) <= maxMessageRunes {
		return value
	}
	return string(runes[:maxMessageRunes]) + "..."
}

// Value sanitizes a single value according to its key. Maps and slices are
// transformed recursively without mutating the input; slice elements are
// keyed by their stringified index, so an anonymous list of phone numbers is
// only masked when the enclosing field name indicates sensitivity.
func Value(key string, value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Value(strconv.Itoa(i), item)
		}
		return out
	case map[string]any:
		return Object(v)
	case string:
		return sanitizeString(key, v)
	default:
		return value
	}
}

// Object sanitizes every entry of a map, returning a new map of the same
// shape.
func Object(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	out := make(map[string]any, len(obj))
	for key, value := range obj {
		out[key] = Value(key, value)
	}
	return out
}

// Headers sanitizes an HTTP header-style map.
func Headers(headers map[string]string) map[string]any {
	if headers == nil {
		return nil
	}
	out := make(map[string]any, len(headers))
	for key, value := range headers {
		out[key] = Value(key, value)
	}
	return out
}

func sanitizeString(key, value string) any {
	lower := strings.ToLower(key)
	switch {
	case containsAny(lower, "auth", "token", "secret", "password", "key"):
		return Redacted
	case containsAny(lower, "phone", "mobile", "recipient"):
		return MaskPhone(value)
	case strings.Contains(lower, "name"):
		return MaskName(value)
	case strings.Contains(lower, "message"):
		return TruncateMessage(value)
	default:
		return value
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
