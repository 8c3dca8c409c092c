// Package arxiv parses arXiv's LaTeXML HTML renderings into typed
// content blocks with rich inline runs.
package arxiv

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

var anchorSlugPattern = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// referenceAnchorID derives a stable same-document anchor from a raw
// element id or URL fragment.
func referenceAnchorID(value string) string {
	slug := anchorSlugPattern.ReplaceAllString(strings.TrimSpace(value), "-")
	slug = strings.ToLower(strings.Trim(slug, "-"))
	if slug == "" {
		slug = "item"
	}
	return "article-ref-" + slug
}

// normalizeInlineHref resolves a link target against the page URL.
// Links back into the same document become reference anchors.
func normalizeInlineHref(baseURL, rawHref string) string {
	href := strings.TrimSpace(rawHref)
	if href == "" {
		return ""
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)

	if resolved.Fragment != "" &&
		(strings.HasPrefix(href, "#") ||
			(base.Scheme == resolved.Scheme && base.Host == resolved.Host && base.Path == resolved.Path)) {
		return "#" + referenceAnchorID(resolved.Fragment)
	}
	return resolved.String()
}

func classSet(n *html.Node) map[string]bool {
	classes := make(map[string]bool)
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, item := range strings.Fields(attr.Val) {
			classes[item] = true
		}
	}
	return classes
}

func hasClass(n *html.Node, candidates ...string) bool {
	classes := classSet(n)
	for _, candidate := range candidates {
		if candidate != "" && classes[candidate] {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// nodeText concatenates the text content of a subtree. With strip set,
// each text node is trimmed and empty pieces dropped before joining
// with sep; otherwise raw text is concatenated with sep between nodes.
func nodeText(n *html.Node, sep string, strip bool) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			text := node.Data
			if strip {
				text = strings.TrimSpace(text)
				if text == "" {
					return
				}
			}
			parts = append(parts, text)
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child)
	}
	return strings.Join(parts, sep)
}

var texAnnotationEncodings = map[string]bool{
	"application/x-tex": true,
	"application/tex":   true,
	"latex":             true,
}

// findAll returns descendant elements matching the predicate, in
// document order.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && match(node) {
			out = append(out, node)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child)
	}
	return out
}

// inlineMathText extracts the TeX for an inline math element: a TeX
// annotation first, then the alttext attribute, then visible text.
func inlineMathText(n *html.Node) string {
	for _, annotation := range findAll(n, func(node *html.Node) bool { return node.Data == "annotation" }) {
		encoding := strings.ToLower(strings.TrimSpace(attrValue(annotation, "encoding")))
		if !texAnnotationEncodings[encoding] {
			continue
		}
		if tex := domain.CleanEquationTeX(nodeText(annotation, " ", true)); tex != "" {
			return tex
		}
	}
	if alt := domain.CleanEquationTeX(strings.TrimSpace(attrValue(n, "alttext"))); alt != "" {
		return alt
	}
	return domain.NormalizeInlineSpacing(nodeText(n, "", false))
}

var citationPartPattern = regexp.MustCompile(`^(\s*[\(\[]?\s*)(.*?)(\s*[\)\]]?\s*)$`)

// wrapCitationPart wraps the label portion of a citation fragment in a
// link while keeping its bracket prefix and suffix as plain text.
func wrapCitationPart(part, href string) []domain.InlineRun {
	if strings.TrimSpace(part) == "" {
		if run := domain.TextRun(part); run != nil {
			return []domain.InlineRun{*run}
		}
		return nil
	}

	prefix, label, suffix := "", strings.TrimSpace(part), ""
	if match := citationPartPattern.FindStringSubmatch(part); match != nil {
		prefix, label, suffix = match[1], match[2], match[3]
	}

	normalizedLabel := domain.NormalizeInlineSpacing(label)
	if normalizedLabel == "" {
		if run := domain.TextRun(part); run != nil {
			return []domain.InlineRun{*run}
		}
		return nil
	}

	var runs []domain.InlineRun
	if run := domain.TextRun(prefix); run != nil {
		runs = append(runs, *run)
	}
	runs = append(runs, domain.InlineRun{
		Type:     domain.RunLink,
		Href:     href,
		Children: []domain.InlineRun{{Type: domain.RunText, Text: normalizedLabel}},
	})
	if run := domain.TextRun(suffix); run != nil {
		runs = append(runs, *run)
	}
	return runs
}

// citeRuns renders a <cite> element. A single target wraps the whole
// citation text; multiple targets are matched against ";"-separated
// parts, falling back to plain text when the counts disagree.
func citeRuns(n *html.Node, baseURL string) []domain.InlineRun {
	plainText := domain.NormalizeInlineSpacing(nodeText(n, " ", false))
	if plainText == "" {
		return nil
	}

	var links []string
	for _, anchor := range findAll(n, func(node *html.Node) bool { return node.Data == "a" }) {
		if resolved := normalizeInlineHref(baseURL, attrValue(anchor, "href")); resolved != "" {
			links = append(links, resolved)
		}
	}

	if len(links) == 0 {
		if run := domain.TextRun(plainText); run != nil {
			return []domain.InlineRun{*run}
		}
		return nil
	}
	if len(links) == 1 {
		return wrapCitationPart(plainText, links[0])
	}

	parts := strings.Split(plainText, ";")
	if len(parts) != len(links) {
		if run := domain.TextRun(plainText); run != nil {
			return []domain.InlineRun{*run}
		}
		return nil
	}

	var rendered []domain.InlineRun
	for i, part := range parts {
		rendered = append(rendered, wrapCitationPart(part, links[i])...)
		if i < len(parts)-1 {
			if sep := domain.TextRun("; "); sep != nil {
				rendered = append(rendered, *sep)
			}
		}
	}
	return domain.NormalizeRuns(rendered)
}

func childRuns(n *html.Node, baseURL string) []domain.InlineRun {
	var runs []domain.InlineRun
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		runs = append(runs, nodeRuns(child, baseURL)...)
	}
	return domain.NormalizeRuns(runs)
}

func nodeRuns(n *html.Node, baseURL string) []domain.InlineRun {
	if n.Type == html.TextNode {
		if run := domain.TextRun(n.Data); run != nil {
			return []domain.InlineRun{*run}
		}
		return nil
	}
	if n.Type != html.ElementNode {
		return nil
	}

	switch n.Data {
	case "script", "style", "annotation":
		return nil
	case "br":
		return []domain.InlineRun{{Type: domain.RunText, Text: " "}}
	case "cite":
		return citeRuns(n, baseURL)
	case "math":
		if strings.ToLower(attrValue(n, "display")) != "block" {
			tex := inlineMathText(n)
			if tex == "" {
				return nil
			}
			return []domain.InlineRun{{Type: domain.RunMath, Text: tex}}
		}
	case "a":
		resolved := normalizeInlineHref(baseURL, attrValue(n, "href"))
		children := childRuns(n, baseURL)
		if resolved == "" {
			return children
		}
		if len(children) == 0 {
			label := domain.NormalizeInlineSpacing(nodeText(n, " ", false))
			if label == "" {
				return nil
			}
			children = []domain.InlineRun{{Type: domain.RunText, Text: label}}
		}
		return []domain.InlineRun{{Type: domain.RunLink, Href: resolved, Children: children}}
	}

	children := childRuns(n, baseURL)
	if len(children) == 0 {
		return nil
	}

	wrapped := children
	wrap := func(runType string) {
		wrapped = []domain.InlineRun{{Type: runType, Children: wrapped}}
	}
	if n.Data == "em" || n.Data == "i" || hasClass(n, "ltx_font_italic") {
		wrap(domain.RunEm)
	}
	if n.Data == "strong" || n.Data == "b" || hasClass(n, "ltx_font_bold") {
		wrap(domain.RunStrong)
	}
	if n.Data == "code" || n.Data == "tt" || hasClass(n, "ltx_font_typewriter") {
		wrap(domain.RunCode)
	}
	if n.Data == "u" || n.Data == "ins" || hasClass(n, "ltx_font_underline") {
		wrap(domain.RunUnderline)
	}
	if n.Data == "s" || n.Data == "strike" || n.Data == "del" ||
		hasClass(n, "ltx_font_strike", "ltx_font_strikethrough") {
		wrap(domain.RunStrike)
	}
	if hasClass(n, "ltx_font_smallcaps", "ltx_font_smallcap") {
		wrap(domain.RunSmallcaps)
	}
	if n.Data == "sub" || hasClass(n, "ltx_font_subscript") {
		wrap(domain.RunSub)
	}
	if n.Data == "sup" || hasClass(n, "ltx_font_superscript") {
		wrap(domain.RunSup)
	}
	return wrapped
}

// extractInlineRuns builds the normalized run tree for an element's
// children.
func extractInlineRuns(sel *goquery.Selection, baseURL string) []domain.InlineRun {
	if len(sel.Nodes) == 0 {
		return nil
	}
	return childRuns(sel.Nodes[0], baseURL)
}

func inlineText(sel *goquery.Selection, baseURL string) string {
	return domain.NormalizeInlineSpacing(domain.RunsToText(extractInlineRuns(sel, baseURL)))
}
