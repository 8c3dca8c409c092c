package strategies

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/quantmind-br/webextract-go/internal/adapters"
	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/htmlx"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

// DomainAdapterStrategy extracts content with the host-specific recipe
// from the adapter registry: curated containers for hosts where the
// generic fallback underperforms, plus promoted rules learned at
// runtime.
type DomainAdapterStrategy struct {
	fetcher  domain.Fetcher
	registry *adapters.Registry
	logger   *utils.Logger
}

func NewDomainAdapterStrategy(fetcher domain.Fetcher, registry *adapters.Registry, logger *utils.Logger) *DomainAdapterStrategy {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &DomainAdapterStrategy{
		fetcher:  fetcher,
		registry: registry,
		logger:   logger.WithStrategy("domain_adapter"),
	}
}

// Name implements domain.Strategy.
func (s *DomainAdapterStrategy) Name() string {
	return "domain_adapter"
}

// Extract implements domain.Strategy.
func (s *DomainAdapterStrategy) Extract(ctx context.Context, ec *domain.ExtractionContext) (*domain.ExtractionCandidate, error) {
	page, err := ensurePage(ctx, s.fetcher, ec)
	if err != nil {
		return nil, err
	}

	host := hostOf(finalURLOf(page, ec))
	adapter := s.registry.AdapterForHost(host)
	if adapter == nil {
		return nil, domain.NewStrategyError(s.Name(), nil, "no domain adapter configured for host")
	}

	payload := page.Payload
	var fragments []string
	for _, pattern := range adapter.HTMLContainerPatterns {
		re, err := regexp.Compile("(?is)" + pattern)
		if err != nil {
			s.logger.WithHost(host).Warn().Str("pattern", pattern).Err(err).Msg("invalid container pattern")
			continue
		}
		for _, match := range re.FindAllStringSubmatch(payload, -1) {
			if len(match) < 2 {
				continue
			}
			if fragment := strings.TrimSpace(match[1]); fragment != "" {
				fragments = append(fragments, fragment)
			}
		}
	}
	if len(fragments) == 0 {
		return nil, domain.NewStrategyError(s.Name(), domain.ErrNoMatch,
			fmt.Sprintf("adapter %s found no matching containers", adapter.Name))
	}

	rawContent := ""
	for _, fragment := range fragments {
		if text := htmlx.StripHTMLToText(fragment); len(text) > len(rawContent) {
			rawContent = text
		}
	}
	rawContent = strings.TrimSpace(rawContent)
	if rawContent == "" {
		return nil, domain.NewStrategyError(s.Name(), domain.ErrContentTooShort,
			fmt.Sprintf("adapter %s produced empty content", adapter.Name))
	}

	for _, pattern := range adapter.DropTextPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			continue
		}
		rawContent = re.ReplaceAllString(rawContent, "")
	}

	rawContent = htmlx.NormalizeTextPreserveParagraphs(rawContent)
	if len(rawContent) < minContentChars {
		return nil, domain.NewStrategyError(s.Name(), domain.ErrContentTooShort,
			fmt.Sprintf("adapter %s content too short", adapter.Name))
	}

	title := htmlx.ExtractTitle(payload)
	canonicalURL := htmlx.ExtractCanonicalURL(payload, finalURLOf(page, ec))
	return &domain.ExtractionCandidate{
		StrategyName:  s.Name(),
		URL:           canonicalURL,
		CanonicalURL:  canonicalURL,
		Title:         title,
		ContentFormat: domain.ContentFormatText,
		RawContent:    truncateContent(rawContent, ec.MaxChars),
		ExtractionMeta: map[string]any{
			"method":       "domain_adapter",
			"adapter_name": adapter.Name,
			"host":         host,
			"content_type": page.ContentType,
		},
		Blocks: htmlx.BuildReaderBlocks(rawContent),
	}, nil
}
