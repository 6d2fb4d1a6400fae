package questiongen

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes every tag. Policies are safe for concurrent use.
var strictPolicy = bluemonday.StrictPolicy()

// maxSanitizePasses bounds the strip and unescape loop for text that keeps
// decoding into new markup.
const maxSanitizePasses = 8

// sanitizeText strips markup from model or user text and decodes entities,
// so "a &amp; b" reads "a & b". Stripping repeats after every decode until
// the text is stable, so entity-encoded tags such as "&lt;b&gt;" never come
// back as markup. Text that is still changing after maxSanitizePasses is
// returned stripped but still escaped.
func sanitizeText(s string) string {
	for range maxSanitizePasses {
		next := html.UnescapeString(strictPolicy.Sanitize(s))
		if next == s {
			return strings.TrimSpace(next)
		}
		s = next
	}
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// SanitizeSource strips markup from source material before it is put into
// a prompt.
func SanitizeSource(s string) string {
	return sanitizeText(s)
}
