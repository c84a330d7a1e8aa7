// Package redact scrubs sensitive information from strings before they are
// logged or echoed in error responses. Recognition errors can embed blob
// filesystem paths, credentials file locations, bearer tokens, and raw SQL
// fragments; none of those belong in logs or client-facing messages.
package redact

import (
	"regexp"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

// Precompiled regex patterns
var (
	// API keys, secrets, and auth material
	apiKeyRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|credential|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// JWT bearer tokens, the standard three-part base64url format
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// Filesystem paths, where blob locations and credentials files live
	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)
	winPathRegex  = regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`)

	// SQL fragments leaked from the durable store's driver errors
	sqlRegex = regexp.MustCompile(
		`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)[\s\w,*()?]+(?:FROM|INTO|SET|TABLE|INDEX)(?:[\s\w,*()='"?]+)?`,
	)

	// Remote endpoints, e.g. the recognition backend's host
	hostPortRegex = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	)

	// OS-level file errors that reveal directory layout
	fileErrorRegex = regexp.MustCompile(
		`(?i)(?:no such file|file not found|can't open|cannot open|permission denied)`,
	)

	patterns = []*regexp.Regexp{
		apiKeyRegex, jwtTokenRegex, unixPathRegex, winPathRegex,
		sqlRegex, hostPortRegex, fileErrorRegex,
	}

	patternPlaceholders = map[*regexp.Regexp]string{
		apiKeyRegex:    RedactedKeyPlaceholder,
		jwtTokenRegex:  "[REDACTED_JWT]",
		unixPathRegex:  RedactedPathPlaceholder,
		winPathRegex:   RedactedPathPlaceholder,
		sqlRegex:       "[REDACTED_SQL]",
		hostPortRegex:  "[REDACTED_HOST]",
		fileErrorRegex: "[REDACTED_FILE_ERROR]",
	}
)

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, pattern := range patterns {
		placeholder := RedactionPlaceholder
		if ph, ok := patternPlaceholders[pattern]; ok {
			placeholder = ph
		}
		result = pattern.ReplaceAllString(result, placeholder)
	}

	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
