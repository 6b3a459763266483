// redact.go implements the optional text post-processing step from
// spec.md §4.6 step 2c. Feature-gated; off by default.
package delivery

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b(\+?\d{1,2}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)
)

// redactPII replaces emails and phone numbers with placeholder tokens.
// Profanity filtering is intentionally not implemented here: it needs
// a maintained wordlist this corpus doesn't provide, and a naive
// regex list would be worse than doing nothing.
func redactPII(text string) string {
	text = emailPattern.ReplaceAllString(text, "[redacted-email]")
	text = phonePattern.ReplaceAllString(text, "[redacted-phone]")
	return text
}
