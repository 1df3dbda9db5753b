// Package slug derives URL-safe identifiers from display names.
package slug

import "strings"

// Make lowercases name, turns every run of characters outside [a-z0-9]
// into a single hyphen and trims hyphens from both ends.
//
//	Make("MERN Stack -- Blog!") == "mern-stack-blog"
//
// Make is idempotent: Make(Make(s)) == Make(s).
func Make(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
