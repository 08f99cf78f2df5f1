// Package logging holds helpers that keep secrets out of logs and out of
// error text persisted alongside generated content.
package logging

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxProviderDetailLength bounds provider error text stored on error rows.
	MaxProviderDetailLength = 500
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match potential passwords in connection strings
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Pattern to match JWT tokens (three base64 segments separated by dots)
	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// Pattern to match potential API keys
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// Pattern to match connection string credentials (user:pass@host format)
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)

	// Vendor secret keys that show up verbatim in provider error bodies
	// (OpenAI/Anthropic "sk-...", Runway "key_...").
	vendorKeyPattern = regexp.MustCompile(`\b(sk-(?:ant-)?[A-Za-z0-9_-]{16,}|key_[A-Za-z0-9]{16,})`)

	// Header-style credentials echoed back in error text.
	authHeaderPattern = regexp.MustCompile(`(?i)(x-api-key|authorization)(["']?\s*[:=]\s*["']?)(?:bearer\s+)?[^\s"',;]+`)
)

// SanitizeConnectionString removes sensitive data from connection strings
// Use this before logging any connection string
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	// Replace password values
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)

	// Replace user:pass@host format
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive data
// Use this before logging any error from database operations
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	// Remove potential passwords
	sanitized := passwordPattern.ReplaceAllString(errStr, "${1}="+RedactedText)

	// Remove JWT tokens
	sanitized = jwtPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)

	// Remove API keys
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)

	// Remove connection string details
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	sanitized = redactVendorSecrets(sanitized)

	return sanitized
}

func redactVendorSecrets(s string) string {
	s = vendorKeyPattern.ReplaceAllString(s, RedactedText)
	s = authHeaderPattern.ReplaceAllString(s, "${1}${2}"+RedactedText)
	return s
}

// SanitizeProviderDetail cleans provider error text before it is stored on a
// generated content error row or returned to API clients. Secrets are
// redacted, whitespace is collapsed and the result is capped at
// MaxProviderDetailLength bytes without splitting a UTF-8 sequence.
func SanitizeProviderDetail(detail string) string {
	if detail == "" {
		return ""
	}

	sanitized := jwtPattern.ReplaceAllString(detail, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = redactVendorSecrets(sanitized)
	sanitized = strings.Join(strings.Fields(sanitized), " ")

	if len(sanitized) <= MaxProviderDetailLength {
		return sanitized
	}
	cut := MaxProviderDetailLength
	for cut > 0 && !utf8.RuneStart(sanitized[cut]) {
		cut--
	}
	return sanitized[:cut] + "..."
}
