// Package htmlx holds regex-based HTML utilities shared by the generic
// strategies. They are deliberately parser-free so they tolerate broken
// markup that a DOM parser would normalize away.
package htmlx

import (
	"html"
	"regexp"
	"strings"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)

	scriptBlockPattern   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleBlockPattern    = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	svgBlockPattern      = regexp.MustCompile(`(?is)<svg\b[^>]*>.*?</svg>`)
	noscriptBlockPattern = regexp.MustCompile(`(?is)<noscript\b[^>]*>.*?</noscript>`)
	commentPattern       = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockClosePattern    = regexp.MustCompile(`(?i)</(p|div|li|h\d|br|tr|section|article|main|blockquote|pre)>`)
	anyTagPattern        = regexp.MustCompile(`<[^>]+>`)
)

// NormalizeWhitespace collapses all whitespace runs to single spaces.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// NormalizeTextPreserveParagraphs normalizes each line's whitespace and
// entity escapes while keeping paragraph breaks; runs of blank lines
// collapse to one, and leading/trailing blanks are removed.
func NormalizeTextPreserveParagraphs(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var normalized []string
	for _, line := range strings.Split(text, "\n") {
		cleaned := NormalizeWhitespace(html.UnescapeString(line))
		if cleaned != "" {
			normalized = append(normalized, cleaned)
		} else if len(normalized) > 0 && normalized[len(normalized)-1] != "" {
			normalized = append(normalized, "")
		}
	}

	for len(normalized) > 0 && normalized[0] == "" {
		normalized = normalized[1:]
	}
	for len(normalized) > 0 && normalized[len(normalized)-1] == "" {
		normalized = normalized[:len(normalized)-1]
	}

	return strings.Join(normalized, "\n")
}

// StripHTMLToText removes script/style/svg/noscript blocks and comments,
// converts block-closing tags into newlines, strips residual tags, and
// normalizes whitespace with paragraph breaks preserved.
func StripHTMLToText(pageHTML string) string {
	text := scriptBlockPattern.ReplaceAllString(pageHTML, " ")
	text = styleBlockPattern.ReplaceAllString(text, " ")
	text = svgBlockPattern.ReplaceAllString(text, " ")
	text = noscriptBlockPattern.ReplaceAllString(text, " ")
	text = commentPattern.ReplaceAllString(text, " ")
	text = blockClosePattern.ReplaceAllString(text, "\n")
	text = anyTagPattern.ReplaceAllString(text, " ")
	return NormalizeTextPreserveParagraphs(text)
}
