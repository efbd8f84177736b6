package vault

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes all HTML, leaving text content only.
var strictPolicy = bluemonday.StrictPolicy()

// dangerous characters stripped from configuration values before they are
// persisted or displayed
const dangerousChars = "<>\"'&;|`$"

// Sanitize strips control characters, HTML/script markup and shell
// metacharacters from a configuration value. Applied to every free-form
// string before it is persisted or rendered.
func Sanitize(value string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)

	// Strip markup first so "<script>x</script>" loses the tags, then undo
	// the entity escaping bluemonday applies to the remaining text.
	cleaned = html.UnescapeString(strictPolicy.Sanitize(cleaned))

	cleaned = strings.Map(func(r rune) rune {
		if strings.ContainsRune(dangerousChars, r) {
			return -1
		}
		return r
	}, cleaned)

	return strings.TrimSpace(cleaned)
}
