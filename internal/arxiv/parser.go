package arxiv

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/htmlx"
)

// StructuredContent is the parsed article: typed blocks, their plain
// text projection, and per-type counts.
type StructuredContent struct {
	RawContent  string
	Blocks      []domain.Block
	BlockCounts map[string]int
}

var rootSelectors = []string{"article.ltx_document", "article", "main", "body"}

func selectRoot(doc *goquery.Document) *goquery.Selection {
	for _, selector := range rootSelectors {
		if node := doc.Find(selector).First(); node.Length() > 0 {
			return node
		}
	}
	return doc.Selection
}

func ancestorSelected(n *html.Node, selected map[*html.Node]bool) bool {
	for parent := n.Parent; parent != nil; parent = parent.Parent {
		if selected[parent] {
			return true
		}
	}
	return false
}

// ExtractStructuredContent parses a LaTeXML page into blocks. The
// traversal visits elements in document order; once an element is
// emitted as a block its subtree is skipped, except for paragraph-like
// div containers whose nested structural elements still become their
// own blocks.
func ExtractStructuredContent(pageHTML, baseURL string, maxChars int) (*StructuredContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}
	root := selectRoot(doc)

	selected := make(map[*html.Node]bool)
	var blocks []domain.Block
	blockIndex := 1

	root.Find("*").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Nodes[0]
		if ancestorSelected(node, selected) {
			return
		}

		var block *domain.Block
		switch {
		case headingLevelByTag[node.Data] != "":
			block = extractHeadingBlock(sel, blockIndex)
		case isReferenceItemNode(node):
			block = extractReferenceBlock(sel, blockIndex)
		case isEquationNode(node):
			block = extractEquationBlock(sel, blockIndex)
		case isDataTableNode(node):
			block = extractTableBlock(sel, blockIndex)
		case isSpanTableFigureNode(node):
			block = extractSpanTableFigureBlock(sel, blockIndex)
		case node.Data == "figure":
			block = extractFigureBlock(sel, baseURL, blockIndex)
		case node.Data == "ul" || node.Data == "ol":
			block = extractListBlock(sel, blockIndex)
		case node.Data == "pre":
			block = extractCodeBlock(sel, blockIndex)
		case node.Data == "blockquote":
			block = extractBlockquoteBlock(sel, baseURL, blockIndex)
		case isParagraphNode(node):
			block = extractParagraphBlock(sel, baseURL, blockIndex)
		}

		if block == nil {
			return
		}

		// a div-based paragraph does not claim its subtree: nested
		// equations, tables and figures are emitted separately
		nonExclusiveParagraph := block.Type == domain.BlockParagraph && node.Data == "div"
		if !nonExclusiveParagraph {
			selected[node] = true
		}
		blocks = append(blocks, *block)
		blockIndex++
	})

	var segments []string
	for i := range blocks {
		if text := blockToText(&blocks[i]); text != "" {
			appendUniqueSegment(&segments, text)
		}
	}

	rawContent := htmlx.NormalizeTextPreserveParagraphs(strings.Join(segments, "\n\n"))
	if maxChars > 0 && len(rawContent) > maxChars {
		rawContent = strings.TrimRight(rawContent[:maxChars], " \t\n")
	}

	blockCounts := make(map[string]int, len(blocks))
	for i := range blocks {
		key := blocks[i].Type
		if key == "" {
			key = "unknown"
		}
		blockCounts[key]++
	}

	return &StructuredContent{
		RawContent:  rawContent,
		Blocks:      blocks,
		BlockCounts: blockCounts,
	}, nil
}

func rowLine(cells []domain.TableCell) string {
	var values []string
	for _, cell := range cells {
		if text := strings.TrimSpace(cell.Text); text != "" {
			values = append(values, text)
		}
	}
	return strings.Join(values, " | ")
}

// blockToText projects one block into the plain-text rendition.
func blockToText(block *domain.Block) string {
	switch block.Type {
	case domain.BlockH1, domain.BlockH2, domain.BlockH3, domain.BlockParagraph,
		domain.BlockBlockquote, domain.BlockCode, domain.BlockReference:
		return strings.TrimSpace(htmlx.NormalizeTextPreserveParagraphs(block.Text))

	case domain.BlockEquation:
		return strings.TrimSpace(htmlx.NormalizeTextPreserveParagraphs(block.EquationTeX))

	case domain.BlockList:
		var lines []string
		for _, item := range block.Items {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				lines = append(lines, "- "+trimmed)
			}
		}
		return strings.TrimSpace(htmlx.NormalizeTextPreserveParagraphs(strings.Join(lines, "\n")))

	case domain.BlockTable:
		var tableLines []string
		if len(block.HeaderRows) > 0 {
			limit := len(block.HeaderRows)
			if limit > 3 {
				limit = 3
			}
			for _, row := range block.HeaderRows[:limit] {
				if line := rowLine(row); line != "" {
					tableLines = append(tableLines, line)
				}
			}
		} else if len(block.Columns) > 0 {
			var columns []string
			for _, value := range block.Columns {
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					columns = append(columns, trimmed)
				}
			}
			if len(columns) > 0 {
				tableLines = append(tableLines, strings.Join(columns, " | "))
			}
		}

		if len(block.BodyRows) > 0 {
			limit := len(block.BodyRows)
			if limit > 8 {
				limit = 8
			}
			for _, row := range block.BodyRows[:limit] {
				if line := rowLine(row); line != "" {
					tableLines = append(tableLines, line)
				}
			}
		} else {
			limit := len(block.Rows)
			if limit > 8 {
				limit = 8
			}
			for _, row := range block.Rows[:limit] {
				var values []string
				for _, value := range row {
					if trimmed := strings.TrimSpace(value); trimmed != "" {
						values = append(values, trimmed)
					}
				}
				if line := strings.Join(values, " | "); line != "" {
					tableLines = append(tableLines, line)
				}
			}
		}

		var parts []string
		if caption := strings.TrimSpace(block.Caption); caption != "" {
			parts = append(parts, caption)
		}
		parts = append(parts, tableLines...)
		noteCount := 0
		for _, note := range block.Notes {
			if trimmed := strings.TrimSpace(note); trimmed != "" {
				parts = append(parts, trimmed)
				noteCount++
				if noteCount >= maxTableNotes {
					break
				}
			}
		}
		return strings.TrimSpace(htmlx.NormalizeTextPreserveParagraphs(strings.Join(parts, "\n")))

	case domain.BlockImage:
		return strings.TrimSpace(htmlx.NormalizeTextPreserveParagraphs(block.Caption))
	}
	return ""
}

// appendUniqueSegment keeps the projection free of near-duplicates:
// exact case-insensitive matches and long containments are dropped.
func appendUniqueSegment(segments *[]string, text string) {
	normalized := strings.TrimSpace(htmlx.NormalizeTextPreserveParagraphs(text))
	if normalized == "" {
		return
	}
	lowered := strings.ToLower(normalized)
	for _, existing := range *segments {
		existingLowered := strings.ToLower(existing)
		if lowered == existingLowered {
			return
		}
		if len(lowered) >= 64 && strings.Contains(existingLowered, lowered) {
			return
		}
		if len(existingLowered) >= 64 && strings.Contains(lowered, existingLowered) {
			return
		}
	}
	*segments = append(*segments, normalized)
}
