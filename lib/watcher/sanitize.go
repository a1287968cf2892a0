package watcher

import (
	"regexp"
	"strings"
)

var (
	scriptBlocks = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlocks  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Sanitize strips script/style/comment noise and collapses whitespace before
// the markup is handed to the extraction backend. Truncation happens last so
// the budget is spent on useful content, not on removed noise.
func Sanitize(html string, maxLen int) string {
	html = scriptBlocks.ReplaceAllString(html, "")
	html = styleBlocks.ReplaceAllString(html, "")
	html = htmlComments.ReplaceAllString(html, "")
	html = compactWhitespace(html)

	if maxLen > 0 && len(html) > maxLen {
		html = html[:maxLen]
	}
	return html
}

func compactWhitespace(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.Trim(s, " ")
	return s
}
