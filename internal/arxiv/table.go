package arxiv

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	if value < 1 {
		return 1
	}
	return value
}

var classSpanPatterns = map[string]*regexp.Regexp{
	"ltx_colspan": regexp.MustCompile(`^ltx_colspan_(\d+)$`),
	"ltx_rowspan": regexp.MustCompile(`^ltx_rowspan_(\d+)$`),
}

// classSpanValue reads LaTeXML's ltx_colspan_N / ltx_rowspan_N class
// encoding of cell spans.
func classSpanValue(n *html.Node, prefix string) int {
	pattern := classSpanPatterns[prefix]
	for class := range classSet(n) {
		match := pattern.FindStringSubmatch(strings.TrimSpace(class))
		if match == nil {
			continue
		}
		return parsePositiveInt(match[1], 1)
	}
	return 1
}

func directChildren(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && match(child) {
			out = append(out, child)
		}
	}
	return out
}

func extractTableCell(cell *html.Node) *domain.TableCell {
	runs := childRuns(cell, "")
	text := domain.NormalizeInlineSpacing(domain.RunsToText(runs))
	if text == "" {
		text = collapseText(nodeText(cell, " ", true))
	}
	if len(text) > maxTableCellChars {
		text = text[:maxTableCellChars]
	}

	classes := classSet(cell)
	colspan := parsePositiveInt(attrValue(cell, "colspan"), 1)
	if colspan == 1 {
		colspan = classSpanValue(cell, "ltx_colspan")
	}
	rowspan := parsePositiveInt(attrValue(cell, "rowspan"), 1)
	if rowspan == 1 {
		rowspan = classSpanValue(cell, "ltx_rowspan")
	}
	isHeader := cell.Data == "th" || classes["ltx_th"]

	if text == "" && colspan == 1 && rowspan == 1 {
		return nil
	}

	parsed := &domain.TableCell{Text: text, IsHeader: isHeader}
	markdown := domain.NormalizeInlineSpacing(domain.RunsToMarkdown(runs))
	if markdown != "" && markdown != text {
		parsed.InlineMarkdown = markdown
	}
	if domain.RunsHaveStructure(runs) {
		parsed.InlineRuns = runs
	}
	if colspan > 1 {
		parsed.Colspan = colspan
	}
	if rowspan > 1 {
		parsed.Rowspan = rowspan
	}
	scope := strings.ToLower(strings.TrimSpace(attrValue(cell, "scope")))
	if scope == "" {
		if classes["ltx_th_row"] {
			scope = "row"
		} else if classes["ltx_th_column"] {
			scope = "col"
		}
	}
	parsed.Scope = scope
	return parsed
}

func isCellNode(n *html.Node) bool {
	return n.Data == "th" || n.Data == "td"
}

// rowCells converts the cells of one row, stopping once the colspan
// budget would exceed the column limit.
func rowCells(cells []*html.Node) []domain.TableCell {
	var parsed []domain.TableCell
	budget := 0
	for _, cell := range cells {
		parsedCell := extractTableCell(cell)
		if parsedCell == nil {
			continue
		}
		span := parsedCell.ColspanOrOne()
		if budget+span > maxTableCols {
			break
		}
		parsed = append(parsed, *parsedCell)
		budget += span
	}
	return parsed
}

func extractTableRowCells(tr *html.Node) []domain.TableCell {
	cells := directChildren(tr, isCellNode)
	if len(cells) == 0 {
		cells = findAll(tr, isCellNode)
	}
	return rowCells(cells)
}

func extractSpanTableRowCells(row *html.Node) []domain.TableCell {
	cells := directChildren(row, func(n *html.Node) bool { return hasClass(n, "ltx_td") })
	if len(cells) == 0 {
		cells = findAll(row, func(n *html.Node) bool { return hasClass(n, "ltx_td") })
	}
	return rowCells(cells)
}

func collectTableRows(section *html.Node, maxRows int) [][]domain.TableCell {
	if section == nil {
		return nil
	}
	collect := func(trs []*html.Node) [][]domain.TableCell {
		var rows [][]domain.TableCell
		for _, tr := range trs {
			parsed := extractTableRowCells(tr)
			if len(parsed) == 0 {
				continue
			}
			rows = append(rows, parsed)
			if len(rows) >= maxRows {
				break
			}
		}
		return rows
	}
	isTR := func(n *html.Node) bool { return n.Data == "tr" }
	if rows := collect(directChildren(section, isTR)); len(rows) > 0 {
		return rows
	}
	return collect(findAll(section, isTR))
}

func collectSpanTableRows(section *html.Node, maxRows int) [][]domain.TableCell {
	if section == nil {
		return nil
	}
	isRow := func(n *html.Node) bool { return hasClass(n, "ltx_tr") }
	rowNodes := directChildren(section, isRow)
	if len(rowNodes) == 0 {
		rowNodes = findAll(section, isRow)
	}

	var rows [][]domain.TableCell
	for _, rowNode := range rowNodes {
		parsed := extractSpanTableRowCells(rowNode)
		if len(parsed) == 0 {
			continue
		}
		rows = append(rows, parsed)
		if len(rows) >= maxRows {
			break
		}
	}
	return rows
}

func collectSpanTableSectionRows(tabular *html.Node, sectionClass string, maxRows int) [][]domain.TableCell {
	if tabular == nil {
		return nil
	}
	isSection := func(n *html.Node) bool { return hasClass(n, sectionClass) }
	sections := directChildren(tabular, isSection)
	if len(sections) == 0 {
		sections = findAll(tabular, isSection)
	}

	var rows [][]domain.TableCell
	for _, section := range sections {
		remaining := maxRows - len(rows)
		if remaining <= 0 {
			break
		}
		rows = append(rows, collectSpanTableRows(section, remaining)...)
	}
	return rows
}

func legacyRowText(row []domain.TableCell) []string {
	var values []string
	for _, cell := range row {
		if text := strings.TrimSpace(cell.Text); text != "" {
			values = append(values, text)
		}
	}
	if len(values) > maxTableCols {
		values = values[:maxTableCols]
	}
	return values
}

func findParentFigure(n *html.Node) *html.Node {
	if n.Data == "figure" {
		return n
	}
	for parent := n.Parent; parent != nil; parent = parent.Parent {
		if parent.Type == html.ElementNode && parent.Data == "figure" {
			return parent
		}
	}
	return nil
}

func extractTableNotes(n *html.Node) []string {
	var notes []string
	appendNote := func(line string) {
		if line == "" || len(notes) >= maxTableNotes {
			return
		}
		for _, existing := range notes {
			if existing == line {
				return
			}
		}
		notes = append(notes, line)
	}

	if tfoots := findAll(n, func(node *html.Node) bool { return node.Data == "tfoot" }); len(tfoots) > 0 {
		for _, tr := range findAll(tfoots[0], func(node *html.Node) bool { return node.Data == "tr" }) {
			appendNote(collapseText(nodeText(tr, " ", true)))
			if len(notes) >= maxTableNotes {
				break
			}
		}
	}

	if figure := findParentFigure(n); figure != nil {
		for _, noteClass := range []string{"ltx_note", "ltx_tablenote", "ltx_note_outer"} {
			for _, node := range findAll(figure, func(node *html.Node) bool { return hasClass(node, noteClass) }) {
				appendNote(collapseText(nodeText(node, " ", true)))
				if len(notes) >= maxTableNotes {
					break
				}
			}
			if len(notes) >= maxTableNotes {
				break
			}
		}
	}
	return notes
}

func extractTableCaption(n *html.Node) string {
	if captions := findAll(n, func(node *html.Node) bool { return node.Data == "caption" }); len(captions) > 0 {
		runs := childRuns(captions[0], "")
		if caption := domain.NormalizeInlineSpacing(domain.RunsToText(runs)); caption != "" {
			return caption
		}
	}
	if figure := findParentFigure(n); figure != nil {
		if figcaptions := findAll(figure, func(node *html.Node) bool { return node.Data == "figcaption" }); len(figcaptions) > 0 {
			runs := childRuns(figcaptions[0], "")
			if caption := domain.NormalizeInlineSpacing(domain.RunsToText(runs)); caption != "" {
				return caption
			}
		}
	}
	return ""
}

// splitHeaderBody classifies undifferentiated rows: leading rows with
// header cells become header rows until a body row appears.
func splitHeaderBody(allRows [][]domain.TableCell) (header, body [][]domain.TableCell) {
	for _, row := range allRows {
		hasHeaderCell := false
		for _, cell := range row {
			if cell.IsHeader {
				hasHeaderCell = true
				break
			}
		}
		if hasHeaderCell && len(body) == 0 && len(header) < 4 {
			header = append(header, row)
		} else {
			body = append(body, row)
		}
		if len(body) >= maxTableRows {
			break
		}
	}
	return header, body
}

func buildTableBlock(headerRows, bodyRows [][]domain.TableCell, caption string, notes []string, index int) *domain.Block {
	var legacyColumns []string
	if len(headerRows) > 0 {
		legacyColumns = legacyRowText(headerRows[len(headerRows)-1])
	}
	var legacyRows [][]string
	for _, row := range bodyRows {
		if legacy := legacyRowText(row); len(legacy) > 0 {
			legacyRows = append(legacyRows, legacy)
		}
	}
	if len(legacyColumns) == 0 && len(legacyRows) > 0 {
		legacyColumns = legacyRows[0]
		legacyRows = legacyRows[1:]
	}

	return &domain.Block{
		ID:         blockID(index),
		Type:       domain.BlockTable,
		Columns:    legacyColumns,
		Rows:       legacyRows,
		HeaderRows: headerRows,
		BodyRows:   bodyRows,
		Caption:    caption,
		Notes:      notes,
	}
}

// promoteFirstHeaderRow lifts the first body row into the header when
// no header rows exist and the row carries a header cell.
func promoteFirstHeaderRow(headerRows, bodyRows [][]domain.TableCell) ([][]domain.TableCell, [][]domain.TableCell) {
	if len(headerRows) > 0 || len(bodyRows) == 0 {
		return headerRows, bodyRows
	}
	for _, cell := range bodyRows[0] {
		if cell.IsHeader {
			return [][]domain.TableCell{bodyRows[0]}, bodyRows[1:]
		}
	}
	return headerRows, bodyRows
}

func extractTableBlock(sel *goquery.Selection, index int) *domain.Block {
	root := sel.Nodes[0]

	var thead, tbody *html.Node
	if nodes := findAll(root, func(n *html.Node) bool { return n.Data == "thead" }); len(nodes) > 0 {
		thead = nodes[0]
	}
	if nodes := findAll(root, func(n *html.Node) bool { return n.Data == "tbody" }); len(nodes) > 0 {
		tbody = nodes[0]
	}

	headerRows := collectTableRows(thead, 4)
	bodyRows := collectTableRows(tbody, maxTableRows)
	if len(headerRows) == 0 && len(bodyRows) == 0 {
		headerRows, bodyRows = splitHeaderBody(collectTableRows(root, maxTableRows+4))
	}
	if len(headerRows) == 0 && len(bodyRows) == 0 {
		return nil
	}
	headerRows, bodyRows = promoteFirstHeaderRow(headerRows, bodyRows)

	return buildTableBlock(headerRows, bodyRows, extractTableCaption(root), extractTableNotes(root), index)
}

func extractSpanTableFigureBlock(sel *goquery.Selection, index int) *domain.Block {
	root := sel.Nodes[0]
	tabulars := findAll(root, func(n *html.Node) bool { return hasClass(n, "ltx_tabular") })
	if len(tabulars) == 0 {
		return nil
	}
	tabular := tabulars[0]

	headerRows := collectSpanTableSectionRows(tabular, "ltx_thead", 4)
	bodyRows := collectSpanTableSectionRows(tabular, "ltx_tbody", maxTableRows)
	if len(headerRows) == 0 && len(bodyRows) == 0 {
		headerRows, bodyRows = splitHeaderBody(collectSpanTableRows(tabular, maxTableRows+4))
	}
	if len(headerRows) == 0 && len(bodyRows) == 0 {
		return nil
	}
	headerRows, bodyRows = promoteFirstHeaderRow(headerRows, bodyRows)

	return buildTableBlock(headerRows, bodyRows, extractTableCaption(root), extractTableNotes(root), index)
}
