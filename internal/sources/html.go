package sources

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style|nav|footer|header)[^>]*>.*?</\s*(script|style|nav|footer|header)\s*>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// CleanHTML strips tags and chrome elements from a job description and
// collapses whitespace, leaving plain text for scoring and embedding.
func CleanHTML(raw string) string {
	if raw == "" {
		return ""
	}
	text := scriptStyleRe.ReplaceAllString(raw, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
