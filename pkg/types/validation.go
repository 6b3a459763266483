package types

import (
	"regexp"

	"golang.org/x/text/language"
)

// FUNCTIONAL DISCOVERY: regex compiled once at package init for
// high-frequency validation on the hot connect/register path.
var classCodeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// IsValidClassCode checks the §3 ClassroomCode format.
func IsValidClassCode(code string) bool {
	return classCodeRegex.MatchString(code)
}

// NormalizeLanguage canonicalizes a BCP-47-ish tag via golang.org/x/text,
// falling back to the raw input when it doesn't parse — student/teacher
// clients occasionally send casing variants ("es-es", "ES_es") that the
// registry and pipeline must still treat as equivalent targets.
func NormalizeLanguage(tag string) string {
	if tag == "" {
		return ""
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return parsed.String()
}

// IsValidRole reports whether role is one of the two lockable roles.
func IsValidRole(role string) bool {
	return role == string(RoleTeacher) || role == string(RoleStudent)
}
