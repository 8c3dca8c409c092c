package adaptive

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/htmlx"
)

// StrategyNameGenerated marks candidates produced by a freshly
// synthesized rule; StrategyNameCached marks reuse of a stored rule.
const (
	StrategyNameGenerated = "llm_adaptive_generated"
	StrategyNameCached    = "llm_adaptive_cached"
)

const minRuleContentChars = 120

// ApplyRule runs a learned rule over a payload and builds a candidate
// document. It fails when the rule matches nothing usable.
func ApplyRule(pageURL, payload, contentType string, rule *domain.AdaptiveRule, generated bool, maxChars int) (*domain.ExtractionCandidate, error) {
	var fragments []string
	for _, pattern := range rule.ContainerRegexes {
		re, err := regexp.Compile("(?is)" + pattern)
		if err != nil {
			continue
		}
		for _, match := range re.FindAllStringSubmatch(payload, -1) {
			fragment := match[0]
			if len(match) > 1 && match[1] != "" {
				fragment = match[1]
			}
			fragment = strings.TrimSpace(fragment)
			if fragment != "" {
				fragments = append(fragments, fragment)
			}
		}
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: rule produced no matching content fragments", domain.ErrNoMatch)
	}

	rawContent := ""
	for _, fragment := range fragments {
		text := htmlx.StripHTMLToText(fragment)
		if len(text) > len(rawContent) {
			rawContent = text
		}
	}
	rawContent = strings.TrimSpace(rawContent)
	for _, pattern := range rule.DropTextPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			continue
		}
		rawContent = re.ReplaceAllString(rawContent, "")
	}

	rawContent = htmlx.NormalizeTextPreserveParagraphs(rawContent)
	if len(rawContent) < minRuleContentChars {
		return nil, fmt.Errorf("%w: rule content too short", domain.ErrContentTooShort)
	}

	canonicalURL := htmlx.ExtractCanonicalURL(payload, pageURL)
	title := htmlx.ExtractTitle(payload)
	host := hostOf(canonicalURL, pageURL)

	strategyName := StrategyNameCached
	if generated {
		strategyName = StrategyNameGenerated
	}
	if maxChars > 0 && len(rawContent) > maxChars {
		rawContent = rawContent[:maxChars]
	}

	return &domain.ExtractionCandidate{
		StrategyName:  strategyName,
		URL:           pageURL,
		CanonicalURL:  canonicalURL,
		Title:         title,
		ContentFormat: domain.ContentFormatText,
		RawContent:    rawContent,
		ExtractionMeta: map[string]any{
			"method":          "llm_adaptive",
			"host":            host,
			"content_type":    contentType,
			"rule_confidence": rule.Confidence,
			"rule_model":      rule.Model,
			"rule_generated":  generated,
		},
		Blocks: htmlx.BuildReaderBlocks(rawContent),
	}, nil
}

func hostOf(canonicalURL, pageURL string) string {
	target := canonicalURL
	if target == "" {
		target = pageURL
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return parsed.Host
}
