package helpers

import "strings"

// SanitizeResourceName lowers a string and replaces characters unsuitable for
// Kubernetes resource names (RFC 1123 labels) with hyphens. Leading and
// trailing hyphens are trimmed so the result is always a valid label start.
func SanitizeResourceName(input string) string {
	if input == "" {
		return ""
	}
	var result strings.Builder
	result.Grow(len(input))

	for _, r := range strings.ToLower(input) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		} else {
			result.WriteRune('-')
		}
	}
	return strings.Trim(result.String(), "-")
}

// SafeIDPrefix shortens an identifier for log output.
func SafeIDPrefix(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
