// internal/resolver/sanitize.go
package resolver

import "strings"

// SanitizeLookupID normalizes a user-entered lookup id before it is sent to
// the directory: trim, collapse internal whitespace, strip trailing
// punctuation.
func SanitizeLookupID(raw string) string {
	id := strings.Join(strings.Fields(raw), " ")
	return strings.TrimRight(id, ".,;:!?-_/\\")
}
