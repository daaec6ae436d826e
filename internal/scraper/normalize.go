package scraper

import (
	"html"
	"regexp"
	"strings"

	strip "github.com/grokify/html-strip-tags-go"
)

var (
	// HN separates paragraphs with a bare <p>; block ends and <br> also break lines.
	blockBreak = regexp.MustCompile(`(?i)<p\s*/?>|</(p|div|pre)\s*>|<br\s*/?>`)
	spaceRun   = regexp.MustCompile(`[ \t\f\r\v]+`)
	blankRun   = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText converts an HN comment body to plain text.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}

	s = blockBreak.ReplaceAllString(s, "\n")
	s = strip.StripTags(s)
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
