package domain

import (
	"regexp"
	"strings"
)

// Inline run types.
const (
	RunText      = "text"
	RunEm        = "em"
	RunStrong    = "strong"
	RunCode      = "code"
	RunSub       = "sub"
	RunSup       = "sup"
	RunUnderline = "underline"
	RunStrike    = "strike"
	RunSmallcaps = "smallcaps"
	RunMath      = "math"
	RunLink      = "link"
)

// InlineRun is one node of a block's rich-text tree: a text or math leaf,
// a style wrapper, or a link.
type InlineRun struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	Href     string      `json:"href,omitempty"`
	Children []InlineRun `json:"children,omitempty"`
}

var wrapperRunTypes = map[string]bool{
	RunEm:        true,
	RunStrong:    true,
	RunCode:      true,
	RunSub:       true,
	RunSup:       true,
	RunUnderline: true,
	RunStrike:    true,
	RunSmallcaps: true,
}

var (
	spaceRunPattern         = regexp.MustCompile(`\s+`)
	spaceBeforeClosePattern = regexp.MustCompile(`\s+([,.;:!?%)\]}])`)
	spaceAfterOpenPattern   = regexp.MustCompile(`([(\[{])\s+`)
	spaceBeforeQuotePattern = regexp.MustCompile(`\s+([’”])`)
	spaceAfterQuotePattern  = regexp.MustCompile(`([‘“])\s+`)
)

var inlineTextSanitizer = strings.NewReplacer(
	"\u00a0", " ",
	"\u200b", "",
	"\ufeff", "",
)

// SanitizeInlineText removes non-breaking and zero-width characters
// without collapsing whitespace.
func SanitizeInlineText(value string) string {
	return inlineTextSanitizer.Replace(value)
}

// NormalizeInlineSpacing collapses whitespace runs and tightens spacing
// around punctuation and quotes.
func NormalizeInlineSpacing(value string) string {
	normalized := SanitizeInlineText(value)
	normalized = spaceRunPattern.ReplaceAllString(normalized, " ")
	normalized = spaceBeforeClosePattern.ReplaceAllString(normalized, "$1")
	normalized = spaceAfterOpenPattern.ReplaceAllString(normalized, "$1")
	normalized = spaceBeforeQuotePattern.ReplaceAllString(normalized, "$1")
	normalized = spaceAfterQuotePattern.ReplaceAllString(normalized, "$1")
	return strings.TrimSpace(normalized)
}

// CleanEquationTeX trims zero-width characters and strips one outer
// $$…$$ or \[…\] delimiter pair.
func CleanEquationTeX(value string) string {
	cleaned := strings.TrimSpace(strings.NewReplacer(
		"\u200b", "",
		"\ufeff", "",
	).Replace(value))
	if strings.HasPrefix(cleaned, "$$") && strings.HasSuffix(cleaned, "$$") && len(cleaned) > 4 {
		cleaned = strings.TrimSpace(cleaned[2 : len(cleaned)-2])
	}
	if strings.HasPrefix(cleaned, `\[`) && strings.HasSuffix(cleaned, `\]`) && len(cleaned) > 4 {
		cleaned = strings.TrimSpace(cleaned[2 : len(cleaned)-2])
	}
	return cleaned
}

// TextRun builds a text leaf, or nil when the sanitized text is empty.
func TextRun(value string) *InlineRun {
	text := SanitizeInlineText(value)
	if text == "" {
		return nil
	}
	return &InlineRun{Type: RunText, Text: text}
}

// NormalizeRuns merges adjacent text leaves, elides empty wrappers,
// resolves link children, and drops empty leaves. It is idempotent.
func NormalizeRuns(runs []InlineRun) []InlineRun {
	normalized := make([]InlineRun, 0, len(runs))

	appendText := func(text string) {
		if text == "" {
			return
		}
		if n := len(normalized); n > 0 && normalized[n-1].Type == RunText {
			normalized[n-1].Text += text
			return
		}
		normalized = append(normalized, InlineRun{Type: RunText, Text: text})
	}

	for _, run := range runs {
		runType := strings.ToLower(strings.TrimSpace(run.Type))
		switch {
		case runType == RunText:
			appendText(SanitizeInlineText(run.Text))

		case runType == RunMath:
			text := CleanEquationTeX(run.Text)
			if text == "" {
				continue
			}
			normalized = append(normalized, InlineRun{Type: RunMath, Text: text})

		case runType == RunLink:
			children := NormalizeRuns(run.Children)
			href := strings.TrimSpace(run.Href)
			if href == "" {
				normalized = append(normalized, children...)
				continue
			}
			if len(children) == 0 {
				label := NormalizeInlineSpacing(run.Text)
				if label == "" {
					continue
				}
				children = []InlineRun{{Type: RunText, Text: label}}
			}
			normalized = append(normalized, InlineRun{Type: RunLink, Href: href, Children: children})

		case wrapperRunTypes[runType]:
			children := NormalizeRuns(run.Children)
			if len(children) == 0 {
				if text := SanitizeInlineText(run.Text); text != "" {
					children = []InlineRun{{Type: RunText, Text: text}}
				}
			}
			if len(children) == 0 {
				continue
			}
			normalized = append(normalized, InlineRun{Type: runType, Children: children})

		default:
			if text := SanitizeInlineText(run.Text); text != "" {
				appendText(text)
			} else if children := NormalizeRuns(run.Children); len(children) > 0 {
				normalized = append(normalized, children...)
			}
		}
	}
	return normalized
}

// RunsToText projects a run tree to plain text.
func RunsToText(runs []InlineRun) string {
	var sb strings.Builder
	for _, run := range runs {
		switch strings.ToLower(strings.TrimSpace(run.Type)) {
		case RunText:
			sb.WriteString(SanitizeInlineText(run.Text))
		case RunMath:
			sb.WriteString(CleanEquationTeX(run.Text))
		default:
			if len(run.Children) > 0 {
				sb.WriteString(RunsToText(run.Children))
			}
		}
	}
	return sb.String()
}

var markdownTextEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"$", `\$`,
)

var markdownLinkLabelEscaper = strings.NewReplacer(
	`\`, `\\`,
	"[", `\[`,
	"]", `\]`,
)

// EscapeMarkdownText escapes markdown control characters in plain text.
func EscapeMarkdownText(value string) string {
	return markdownTextEscaper.Replace(value)
}

// RunsToMarkdown projects a run tree to inline markdown.
func RunsToMarkdown(runs []InlineRun) string {
	var sb strings.Builder
	for _, run := range runs {
		runType := strings.ToLower(strings.TrimSpace(run.Type))
		switch runType {
		case RunText:
			sb.WriteString(EscapeMarkdownText(run.Text))
		case RunMath:
			if value := CleanEquationTeX(run.Text); value != "" {
				sb.WriteString("$" + value + "$")
			}
		case RunLink:
			href := strings.TrimSpace(run.Href)
			label := NormalizeInlineSpacing(RunsToText(run.Children))
			if href != "" && label != "" {
				sb.WriteString("[" + markdownLinkLabelEscaper.Replace(label) + "](<" + href + ">)")
			} else if label != "" {
				sb.WriteString(EscapeMarkdownText(label))
			}
		default:
			content := RunsToMarkdown(run.Children)
			if content == "" {
				continue
			}
			switch runType {
			case RunEm:
				sb.WriteString("*" + content + "*")
			case RunStrong:
				sb.WriteString("**" + content + "**")
			case RunCode:
				sb.WriteString("`" + strings.ReplaceAll(content, "`", "\\\\`") + "`")
			case RunStrike:
				sb.WriteString("~~" + content + "~~")
			default:
				sb.WriteString(content)
			}
		}
	}
	return sb.String()
}

// RunsHaveStructure reports whether any run is something other than a
// plain text leaf.
func RunsHaveStructure(runs []InlineRun) bool {
	for _, run := range runs {
		if strings.ToLower(strings.TrimSpace(run.Type)) != RunText {
			return true
		}
	}
	return false
}
