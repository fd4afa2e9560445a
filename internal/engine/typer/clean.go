package typer

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanString trims, collapses internal whitespace runs to a single space,
// and optionally strips HTML tags down to their text content.
func cleanString(raw string, stripHTML bool) string {
	s := raw
	if stripHTML {
		s = stripHTMLTags(s)
	}
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripHTMLTags renders the text content of an HTML fragment, used for the
// "text" field type's clean step (§4.1: "strip HTML if text").
func stripHTMLTags(raw string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(raw))
	var b strings.Builder
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}
}

// applyRegexCapture extracts capture group 1 if pattern is non-empty and
// matches; otherwise returns raw unchanged.
func applyRegexCapture(raw, pattern string) string {
	if pattern == "" {
		return raw
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return raw
	}
	m := re.FindStringSubmatch(raw)
	if len(m) > 1 {
		return m[1]
	}
	return raw
}
