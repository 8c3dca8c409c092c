package strategies

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/quantmind-br/webextract-go/internal/arxiv"
	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/fetcher"
	"github.com/quantmind-br/webextract-go/internal/htmlx"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

const arxivHostSuffix = "arxiv.org"

var arxivHTMLPathPattern = regexp.MustCompile(`(?i)/html/`)

func isArxivURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(strings.TrimSpace(parsed.Host))
	return host == arxivHostSuffix || strings.HasSuffix(host, "."+arxivHostSuffix)
}

// ArxivHTMLStrategy parses LaTeXML-rendered arXiv papers into typed
// blocks through the structural parser.
type ArxivHTMLStrategy struct {
	fetcher domain.Fetcher
	logger  *utils.Logger
}

func NewArxivHTMLStrategy(fetcher domain.Fetcher, logger *utils.Logger) *ArxivHTMLStrategy {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &ArxivHTMLStrategy{
		fetcher: fetcher,
		logger:  logger.WithStrategy("arxiv_html"),
	}
}

// Name implements domain.Strategy.
func (s *ArxivHTMLStrategy) Name() string {
	return "arxiv_html"
}

// Extract implements domain.Strategy.
func (s *ArxivHTMLStrategy) Extract(ctx context.Context, ec *domain.ExtractionContext) (*domain.ExtractionCandidate, error) {
	if !isArxivURL(ec.URL) {
		return nil, domain.NewStrategyError(s.Name(), nil, "URL is not an arXiv host")
	}

	page, err := ensurePage(ctx, s.fetcher, ec)
	if err != nil {
		return nil, err
	}

	finalURL := finalURLOf(page, ec)
	if !isArxivURL(finalURL) {
		return nil, domain.NewStrategyError(s.Name(), nil, "URL is not an arXiv host")
	}
	parsed, err := url.Parse(finalURL)
	if err != nil || !arxivHTMLPathPattern.MatchString(parsed.Path) {
		return nil, domain.NewStrategyError(s.Name(), nil, "URL is not an arXiv HTML document path")
	}
	if fetcher.IsBinaryContentType(page.ContentType) {
		return nil, domain.NewStrategyError(s.Name(), domain.ErrBinaryPayload, "arXiv URL returned binary content instead of HTML")
	}

	payload := page.Payload
	if !strings.Contains(strings.ToLower(payload), "<html") {
		return nil, domain.NewStrategyError(s.Name(), nil, "arXiv HTML payload is empty or malformed")
	}

	structured, err := arxiv.ExtractStructuredContent(payload, finalURL, ec.MaxChars)
	if err != nil {
		return nil, domain.NewStrategyError(s.Name(), err, "arXiv HTML parsing failed")
	}
	rawContent := structured.RawContent
	if len(rawContent) < minContentChars {
		return nil, domain.NewStrategyError(s.Name(), domain.ErrContentTooShort,
			"arXiv HTML extraction produced insufficient readable content")
	}

	title := htmlx.ExtractTitle(payload)
	canonicalURL := htmlx.ExtractCanonicalURL(payload, finalURL)
	blocks := structured.Blocks
	if len(blocks) == 0 {
		blocks = htmlx.BuildReaderBlocks(rawContent)
	}

	return &domain.ExtractionCandidate{
		StrategyName:  s.Name(),
		URL:           canonicalURL,
		CanonicalURL:  canonicalURL,
		Title:         title,
		ContentFormat: domain.ContentFormatText,
		RawContent:    truncateContent(rawContent, ec.MaxChars),
		ExtractionMeta: map[string]any{
			"method":       "arxiv_html",
			"host":         strings.ToLower(parsed.Host),
			"content_type": page.ContentType,
			"block_counts": structured.BlockCounts,
		},
		Blocks: blocks,
	}, nil
}
