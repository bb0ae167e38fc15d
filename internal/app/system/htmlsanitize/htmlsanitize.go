// Package htmlsanitize cleans user-supplied rich text before it is stored.
//
// Rich fields (group and event descriptions, posts, comments) keep a safe
// subset of HTML. Plain fields (names, titles, bios, message bodies) are
// stored as given and never pass through here.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize returns s with unsafe markup removed (scripts, event handlers,
// javascript: URLs, iframes, styles). Safe formatting is preserved.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// PlainText returns the visible text of sanitized rich content, used to
// reject posts that are nothing but markup. "<b>hi</b>" becomes "hi".
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
