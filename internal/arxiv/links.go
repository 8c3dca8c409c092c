package arxiv

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

var (
	arxivIDPattern = regexp.MustCompile(`(?i)\barXiv:([A-Za-z\-]+/\d{7}|\d{4}\.\d{4,5})(?:v\d+)?\b`)
	doiPattern     = regexp.MustCompile(`(?i)\b(10\.\d{4,9}/[-._;()/:A-Z0-9]+)\b`)
	urlPattern     = regexp.MustCompile(`(?i)https?://[^\s)>\]]+`)
)

// detectReferenceLinks derives outbound links from a bibliography
// entry's text: an arXiv identifier, a DOI, bare URLs, and a Google
// Scholar search as the fallback when nothing else is found.
func detectReferenceLinks(referenceText string) []domain.ReferenceLink {
	text := strings.TrimSpace(referenceText)
	if text == "" {
		return nil
	}

	var links []domain.ReferenceLink
	seen := make(map[string]bool)
	appendLink := func(href, label, kind string) {
		href = strings.TrimSpace(href)
		label = strings.TrimSpace(label)
		if href == "" || label == "" || seen[href] {
			return
		}
		seen[href] = true
		links = append(links, domain.ReferenceLink{Href: href, Label: label, Kind: kind})
	}

	if match := arxivIDPattern.FindStringSubmatch(text); match != nil {
		identifier := strings.TrimSpace(match[1])
		if identifier != "" {
			appendLink("https://arxiv.org/abs/"+identifier, "arXiv:"+identifier, domain.LinkKindArxiv)
		}
	}

	if match := doiPattern.FindStringSubmatch(text); match != nil {
		doi := strings.TrimRight(match[1], ".,;)")
		if doi != "" {
			appendLink("https://doi.org/"+doi, "DOI", domain.LinkKindDOI)
		}
	}

	for _, match := range urlPattern.FindAllString(text, -1) {
		value := strings.TrimRight(match, ".,;)")
		if value == "" {
			continue
		}
		label := strings.TrimPrefix(strings.TrimPrefix(value, "https://"), "http://")
		if len(label) > 72 {
			label = label[:72]
		}
		appendLink(value, label, domain.LinkKindURL)
	}

	if len(links) == 0 {
		query := text
		if len(query) > 320 {
			query = query[:320]
		}
		appendLink(
			"https://scholar.google.com/scholar?q="+url.QueryEscape(query),
			"Scholar",
			domain.LinkKindSearch,
		)
	}
	return links
}
