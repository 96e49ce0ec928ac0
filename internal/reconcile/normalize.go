package reconcile

import (
	"html"
	"regexp"
	"strings"
)

// Reshared quote-posts carry a trailing shortened link to the quoted tweet;
// it contributes nothing to the visible length.
var shortLinkSuffix = regexp.MustCompile(`\s*https?://t\.co/\w+$`)

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// normalizeText prepares reshared text for the truncation length check:
// decode HTML entities, drop the trailing t.co suffix, collapse newlines to
// spaces and trim.
func normalizeText(text string) string {
	text = html.UnescapeString(text)
	text = shortLinkSuffix.ReplaceAllString(text, "")
	text = newlines.Replace(text)
	return strings.TrimSpace(text)
}
