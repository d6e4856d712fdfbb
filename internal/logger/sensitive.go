package logger

import (
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// SensitiveDataPatterns match credentials that can end up inside logged URLs or messages.
// The WAQI feed carries its token in the query string.
var SensitiveDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
	regexp.MustCompile(`(?i)([?&](token|api_?key|key)=)([^&\s]+)`),
	regexp.MustCompile(`(?i)((password|passwd|secret)[\s:=]+)([^;,\s]{3,})`),
}

// SensitiveKeywords are field keys whose string values are never written as-is
var SensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey", "authorization", "dsn",
}

// RedactSensitiveData replaces credentials embedded in free text with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range SensitiveDataPatterns {
		input = pattern.ReplaceAllString(input, "${1}"+redactedValue)
	}
	return input
}

func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, sensitive := range SensitiveKeywords {
		if strings.Contains(keyLower, sensitive) {
			return true
		}
	}
	return false
}
