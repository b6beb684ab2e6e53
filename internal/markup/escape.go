// Package markup escapes untrusted text before it is placed inside HTML
// fragments.
//
// Only the four characters that can open a tag, start an entity or close an
// attribute value are replaced. Static markup (bubbles, buttons) is written
// by the caller and never passes through Escape.
package markup

import "strings"

// The replacer works in a single pass, so entities it produces are never
// escaped again.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// Escape returns s with &, <, > and " replaced by their HTML entities.
func Escape(s string) string {
	return escaper.Replace(s)
}
