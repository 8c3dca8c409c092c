package arxiv

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/htmlx"
)

const (
	maxTableRows      = 24
	maxTableCols      = 10
	maxListItems      = 20
	maxCodeChars      = 3000
	maxEquationChars  = 1200
	maxTableCellChars = 280
	maxTableNotes     = 8
	maxReferenceChars = 1400
)

var headingLevelByTag = map[string]string{
	"h1": domain.BlockH1,
	"h2": domain.BlockH2,
	"h3": domain.BlockH3,
	"h4": domain.BlockH3,
	"h5": domain.BlockH3,
	"h6": domain.BlockH3,
}

var equationClasses = []string{"ltx_equation", "MathJax_Display", "math-display", "equation"}

func blockID(index int) string {
	return fmt.Sprintf("arxiv-%d", index)
}

// collapseText flattens a multi-line normalization to a single line.
func collapseText(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(htmlx.NormalizeTextPreserveParagraphs(value), "\n", " "))
}

func isParagraphNode(n *html.Node) bool {
	if n.Data == "p" {
		return true
	}
	return n.Data == "div" && hasClass(n, "ltx_para")
}

func isEquationNode(n *html.Node) bool {
	if n.Data == "math" && strings.ToLower(attrValue(n, "display")) == "block" {
		return true
	}
	return hasClass(n, equationClasses...)
}

func isDataTableNode(n *html.Node) bool {
	return n.Data == "table" && !hasClass(n, "ltx_equation")
}

func isSpanTableFigureNode(n *html.Node) bool {
	return n.Data == "figure" && hasClass(n, "ltx_table")
}

func isReferenceItemNode(n *html.Node) bool {
	if n.Data != "li" && n.Data != "div" {
		return false
	}
	return hasClass(n, "ltx_bibitem")
}

// attachInlineRendering fills the optional inline fields shared by
// heading, paragraph and blockquote blocks.
func attachInlineRendering(block *domain.Block, runs []domain.InlineRun, text string) {
	markdown := domain.NormalizeInlineSpacing(domain.RunsToMarkdown(runs))
	if markdown != "" && markdown != text {
		block.InlineMarkdown = markdown
	}
	if domain.RunsHaveStructure(runs) {
		block.InlineRuns = runs
	}
}

func extractHeadingBlock(sel *goquery.Selection, index int) *domain.Block {
	runs := extractInlineRuns(sel, "")
	text := domain.NormalizeInlineSpacing(domain.RunsToText(runs))
	if len(text) < 2 {
		return nil
	}
	level, ok := headingLevelByTag[goquery.NodeName(sel)]
	if !ok {
		level = domain.BlockH3
	}
	block := &domain.Block{ID: blockID(index), Type: level, Text: text}
	attachInlineRendering(block, runs, text)
	return block
}

func extractParagraphBlock(sel *goquery.Selection, baseURL string, index int) *domain.Block {
	source := sel
	if goquery.NodeName(sel) == "div" {
		// a container whose direct children are themselves paragraphs
		// yields nothing; the children are visited on their own
		for _, child := range sel.Children().Nodes {
			if isParagraphNode(child) {
				return nil
			}
		}
		// nested structural elements become separate blocks, so they
		// are removed from the cloned paragraph source
		clone := sel.Clone()
		clone.Find("figure, ul, ol, pre, blockquote, table, .ltx_equation, math[display='block']").Remove()
		source = clone
	}

	runs := extractInlineRuns(source, baseURL)
	text := domain.NormalizeInlineSpacing(domain.RunsToText(runs))
	if len(text) < 20 {
		return nil
	}
	block := &domain.Block{ID: blockID(index), Type: domain.BlockParagraph, Text: text}
	attachInlineRendering(block, runs, text)
	return block
}

func extractListBlock(sel *goquery.Selection, index int) *domain.Block {
	for _, child := range sel.Children().Nodes {
		if isReferenceItemNode(child) {
			return nil
		}
	}

	var items []string
	sel.ChildrenFiltered("li").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		text := inlineText(item, "")
		if text != "" {
			items = append(items, text)
		}
		return len(items) < maxListItems
	})
	if len(items) == 0 {
		return nil
	}
	return &domain.Block{
		ID:      blockID(index),
		Type:    domain.BlockList,
		Ordered: domain.BoolPtr(goquery.NodeName(sel) == "ol"),
		Items:   items,
	}
}

// resolveAssetURL resolves a relative asset path against the directory
// of the final page URL.
func resolveAssetURL(baseURL, relative string) string {
	trimmed := strings.TrimSpace(relative)
	if trimmed == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	assetBase := &url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   strings.TrimRight(base.Path, "/") + "/",
	}
	rel, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	return assetBase.ResolveReference(rel).String()
}

var decorativeImageMarkers = []string{"logo", "icon", "badge", "favicon", "orcid"}

func extractFigureBlock(sel *goquery.Selection, baseURL string, index int) *domain.Block {
	image := sel.Find("img").First()
	if image.Length() == 0 {
		return nil
	}
	src := strings.TrimSpace(image.AttrOr("src", ""))
	if src == "" {
		return nil
	}
	imageURL := resolveAssetURL(baseURL, src)
	if imageURL == "" {
		return nil
	}
	lowered := strings.ToLower(imageURL)
	for _, marker := range decorativeImageMarkers {
		if strings.Contains(lowered, marker) {
			return nil
		}
	}

	block := &domain.Block{
		ID:       blockID(index),
		Type:     domain.BlockImage,
		ImageURL: imageURL,
		Source:   "arxiv_html_figure",
	}
	caption := sel.Find("figcaption").First()
	if caption.Length() > 0 {
		block.Caption = collapseText(nodeText(caption.Nodes[0], " ", true))
	}
	return block
}

func extractEquationNumber(sel *goquery.Selection) string {
	for _, selector := range []string{".ltx_tag_equation", ".ltx_eqn_tag", ".ltx_tag"} {
		node := sel.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if value := collapseText(nodeText(node.Nodes[0], " ", true)); value != "" {
			return value
		}
	}
	return ""
}

// extractEquationText finds the TeX source of a display equation: TeX
// annotations and alttext per math element, then data attributes, then
// the visible text with any equation tag stripped off the end.
func extractEquationText(sel *goquery.Selection) string {
	root := sel.Nodes[0]

	var candidates []string
	for _, mathNode := range findAll(root, func(n *html.Node) bool { return n.Data == "math" }) {
		for _, annotation := range findAll(mathNode, func(n *html.Node) bool { return n.Data == "annotation" }) {
			encoding := strings.ToLower(strings.TrimSpace(attrValue(annotation, "encoding")))
			if !texAnnotationEncodings[encoding] {
				continue
			}
			if tex := domain.CleanEquationTeX(nodeText(annotation, " ", true)); tex != "" {
				candidates = append(candidates, tex)
			}
		}
		if alt := strings.TrimSpace(attrValue(mathNode, "alttext")); alt != "" {
			candidates = append(candidates, domain.CleanEquationTeX(alt))
		}
	}

	if len(candidates) > 0 {
		var unique []string
		seen := make(map[string]bool)
		for _, item := range candidates {
			if item == "" || seen[item] {
				continue
			}
			seen[item] = true
			unique = append(unique, item)
		}
		if len(unique) == 1 {
			return unique[0]
		}
		return strings.Join(unique, ` \\ `)
	}

	for _, attr := range []string{"data-tex", "latex", "tex"} {
		if value := domain.CleanEquationTeX(attrValue(root, attr)); value != "" {
			return value
		}
	}

	fallback := collapseText(nodeText(root, " ", true))
	if number := extractEquationNumber(sel); number != "" && strings.HasSuffix(fallback, number) {
		fallback = strings.TrimSpace(fallback[:len(fallback)-len(number)])
	}
	return domain.CleanEquationTeX(fallback)
}

func extractEquationBlock(sel *goquery.Selection, index int) *domain.Block {
	equation := strings.TrimSpace(extractEquationText(sel))
	if equation == "" {
		return nil
	}
	if len(equation) > maxEquationChars {
		equation = strings.TrimRight(equation[:maxEquationChars], " \t\n")
	}
	block := &domain.Block{ID: blockID(index), Type: domain.BlockEquation, EquationTeX: equation}
	if number := extractEquationNumber(sel); number != "" {
		block.EquationNumber = number
	}
	return block
}

func extractCodeBlock(sel *goquery.Selection, index int) *domain.Block {
	code := strings.TrimSpace(htmlx.NormalizeTextPreserveParagraphs(nodeText(sel.Nodes[0], "\n", true)))
	if code == "" {
		return nil
	}
	if len(code) > maxCodeChars {
		code = strings.TrimRight(code[:maxCodeChars], " \t\n")
	}
	return &domain.Block{ID: blockID(index), Type: domain.BlockCode, Text: code}
}

func extractBlockquoteBlock(sel *goquery.Selection, baseURL string, index int) *domain.Block {
	runs := extractInlineRuns(sel, baseURL)
	text := domain.NormalizeInlineSpacing(domain.RunsToText(runs))
	if len(text) < 10 {
		return nil
	}
	block := &domain.Block{ID: blockID(index), Type: domain.BlockBlockquote, Text: text}
	attachInlineRendering(block, runs, text)
	return block
}

func extractReferenceBlock(sel *goquery.Selection, index int) *domain.Block {
	text := collapseText(nodeText(sel.Nodes[0], " ", true))
	if text == "" {
		return nil
	}
	if len(text) > maxReferenceChars {
		text = strings.TrimRight(text[:maxReferenceChars], " \t\n")
	}

	block := &domain.Block{ID: blockID(index), Type: domain.BlockReference, Text: text}
	if rawID := strings.TrimSpace(attrValue(sel.Nodes[0], "id")); rawID != "" {
		block.AnchorID = referenceAnchorID(rawID)
	}
	block.Links = detectReferenceLinks(text)
	return block
}
