// Package redact strips connection strings, credentials, file paths, SQL and
// stack traces from error text before it is logged or returned to a client.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted fragments.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// Rules run in order; connection strings go before hosts and paths so the
// credential part is caught whole.
var rules = []rule{
	{
		regexp.MustCompile(`(?i)(postgres|postgresql|sqlite|file|db|database)://[^@\s]+@`),
		RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`),
		RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|token|secret)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		RedactedKeyPlaceholder,
	},
	{
		regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`),
		RedactedStackPlaceholder,
	},
	{
		regexp.MustCompile(
			`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)[\s\w,*()."]+(?:FROM|INTO|SET|TABLE|INDEX)(?:[\s\w,*()='".$?]+)?`,
		),
		RedactedSQLPlaceholder,
	},
	{
		regexp.MustCompile(`(/[\w.-]+){2,}`),
		RedactedPathPlaceholder,
	},
	{
		regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`),
		RedactedPathPlaceholder,
	},
	{
		regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`),
		RedactedHostPlaceholder,
	},
}

// String redacts sensitive fragments of input.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts err.Error(). A nil error gives "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
