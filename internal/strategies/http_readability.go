package strategies

import (
	"context"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/fetcher"
	"github.com/quantmind-br/webextract-go/internal/htmlx"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

// HTTPReadabilityStrategy is the generic fallback: the primary HTML
// container fragments and a readability pass compete, and the longest
// plain-text projection wins.
type HTTPReadabilityStrategy struct {
	fetcher domain.Fetcher
	logger  *utils.Logger
}

func NewHTTPReadabilityStrategy(fetcher domain.Fetcher, logger *utils.Logger) *HTTPReadabilityStrategy {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &HTTPReadabilityStrategy{
		fetcher: fetcher,
		logger:  logger.WithStrategy("http_readability"),
	}
}

// Name implements domain.Strategy.
func (s *HTTPReadabilityStrategy) Name() string {
	return "http_readability"
}

// readabilityText runs the readability algorithm over the payload and
// returns its normalized text projection, or "" when it fails.
func readabilityText(payload, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(payload), parsedURL)
	if err != nil {
		return ""
	}
	return htmlx.NormalizeTextPreserveParagraphs(article.TextContent)
}

// Extract implements domain.Strategy.
func (s *HTTPReadabilityStrategy) Extract(ctx context.Context, ec *domain.ExtractionContext) (*domain.ExtractionCandidate, error) {
	page, err := ensurePage(ctx, s.fetcher, ec)
	if err != nil {
		return nil, err
	}
	payload := page.Payload
	contentType := page.ContentType

	if fetcher.IsBinaryContentType(contentType) {
		return nil, domain.NewStrategyError(s.Name(), domain.ErrBinaryPayload,
			"binary payload cannot be extracted as readable article text")
	}
	if fetcher.LooksBlocked(payload, contentType) {
		return nil, domain.NewStrategyError(s.Name(), domain.ErrBlockedPage,
			"page appears to be blocked by anti-bot protections")
	}

	finalURL := finalURLOf(page, ec)
	var rawContent, title, canonicalURL string
	if strings.Contains(contentType, "text/html") || strings.Contains(strings.ToLower(payload), "<html") {
		for _, fragment := range htmlx.ExtractPrimaryHTMLCandidates(payload) {
			if text := htmlx.StripHTMLToText(fragment); len(text) > len(rawContent) {
				rawContent = text
			}
		}
		if text := readabilityText(payload, finalURL); len(text) > len(rawContent) {
			rawContent = text
		}
		rawContent = strings.TrimSpace(rawContent)
		title = htmlx.ExtractTitle(payload)
		canonicalURL = htmlx.ExtractCanonicalURL(payload, finalURL)
	} else {
		rawContent = htmlx.NormalizeTextPreserveParagraphs(payload)
		canonicalURL = finalURL
	}

	if len(rawContent) < minContentChars {
		return nil, domain.NewStrategyError(s.Name(), domain.ErrContentTooShort,
			"could not extract enough readable article content from URL")
	}

	return &domain.ExtractionCandidate{
		StrategyName:  s.Name(),
		URL:           ec.URL,
		CanonicalURL:  canonicalURL,
		Title:         title,
		ContentFormat: domain.ContentFormatText,
		RawContent:    truncateContent(rawContent, ec.MaxChars),
		ExtractionMeta: map[string]any{
			"method":       "http_readability",
			"host":         hostOf(finalURL),
			"content_type": contentType,
		},
		Blocks: htmlx.BuildReaderBlocks(rawContent),
	}, nil
}
